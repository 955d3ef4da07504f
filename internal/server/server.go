package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/blogsphere/apiserver/config"
	"github.com/blogsphere/apiserver/internal/db"
	"github.com/blogsphere/apiserver/internal/handlers"
	"github.com/blogsphere/apiserver/internal/middleware"
	"github.com/blogsphere/apiserver/internal/mq"
	"github.com/blogsphere/apiserver/internal/ratelimit"
	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	requestTimeout = 60 * time.Second
	pruneInterval  = time.Minute
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer  *http.Server
	db          *sql.DB
	broker      *mq.MQ
	limiter     *ratelimit.Limiter
	stopJanitor context.CancelFunc
	janitorCtx  context.Context
	logger      *zap.Logger
}

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Users    *services.UserService
	Posts    *services.PostService
	Comments *services.CommentService
	Limiter  *ratelimit.Limiter
	Registry *prometheus.Registry
}

// New connects to the database, image host and broker and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objectStore, err := storage.FromConfig(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		logger.Warn("image host disabled, photo uploads will be rejected")
		objectStore = nil
	case err != nil:
		_ = dbConn.Close()
		return nil, err
	default:
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn("image host not reachable", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		}
	}

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("message queue disabled, released photos are deleted inline")
		broker = nil
	case err != nil:
		_ = dbConn.Close()
		return nil, err
	}

	var publisher services.Publisher
	if broker != nil {
		publisher = broker
	}
	events := services.NewEvents(publisher, logger)
	photos := services.NewPhotoService(objectStore, events, cfg.Storage.Folder, cfg.HTTP.MaxPhotoBytes, logger)

	userRepo := store.NewUserRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)
	commentRepo := store.NewCommentRepository(dbConn)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(dbConn, "blog"),
	)

	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	router := NewRouter(cfg, Dependencies{
		Users:    services.NewUserService(userRepo, photos),
		Posts:    services.NewPostService(postRepo, photos, events),
		Comments: services.NewCommentService(commentRepo, postRepo, events, logger),
		Limiter:  limiter,
		Registry: registry,
	}, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.WithoutCancel(ctx))
	return &Server{
		httpServer:  httpServer,
		db:          dbConn,
		broker:      broker,
		limiter:     limiter,
		janitorCtx:  janitorCtx,
		stopJanitor: stopJanitor,
		logger:      logger,
	}, nil
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg config.Config, deps Dependencies, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring trusted proxies", zap.Error(err))
		trustedProxies = nil
	}

	router := chi.NewRouter()
	router.Use(
		chimw.RequestID,
		middleware.RealIP(trustedProxies),
		middleware.Recoverer(logger),
		middleware.RequestLogger(logger),
		middleware.Metrics(middleware.NewHTTPMetrics(registry)),
		middleware.SecurityHeaders,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
	)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	authMiddleware := handlers.RequireAuth(cfg.Auth.JWTSecret)
	router.Group(func(r chi.Router) {
		if cfg.HTTP.MaxBodyBytes > 0 {
			r.Use(chimw.RequestSize(cfg.HTTP.MaxBodyBytes))
		}
		r.Use(
			middleware.RateLimit(limiter),
			chimw.Timeout(requestTimeout),
		)

		r.Get("/", handlers.Root)
		r.Route("/api", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				handlers.AuthRouter(r, deps.Users, cfg.Auth)
			})
			r.Route("/posts", func(r chi.Router) {
				handlers.PostRouter(r, deps.Posts, deps.Users, cfg.HTTP.MaxPhotoBytes, authMiddleware)
			})
			r.Route("/comments", func(r chi.Router) {
				handlers.CommentRouter(r, deps.Comments, deps.Users, authMiddleware)
			})
			r.Route("/upload", func(r chi.Router) {
				handlers.UploadRouter(r, deps.Users, cfg.HTTP.MaxPhotoBytes, authMiddleware)
			})
		})
	})

	return gziphandler.GzipHandler(router)
}

// Handler exposes the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	go s.limiter.Run(s.janitorCtx, pruneInterval)

	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	err = multierr.Append(err, s.httpServer.Shutdown(ctx))
	s.stopJanitor()
	if s.broker != nil {
		err = multierr.Append(err, s.broker.Close())
	}
	if s.db != nil {
		err = multierr.Append(err, s.db.Close())
	}
	return err
}
