// Package ratelimit keeps a token bucket per client key.
package ratelimit

import (
	"context"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultPruneInterval = time.Minute

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter allows up to requests per window for each key, refilling
// continuously. Buckets that have refilled completely are pruned.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
	logger   *zap.Logger
}

// New returns a Limiter admitting requests per window for every key.
func New(requests int, window time.Duration, logger *zap.Logger) *Limiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		now:      time.Now,
		logger:   logger,
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) Decision {
	lim := l.get(key)
	now := l.now()

	if lim.AllowN(now, 1) {
		remaining := int(lim.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		return Decision{Allowed: true, Limit: l.burst, Remaining: remaining}
	}

	// Reserve to learn the wait, then hand the token back.
	r := lim.ReserveN(now, 1)
	retryAfter := r.DelayFrom(now)
	r.CancelAt(now)
	return Decision{Allowed: false, Limit: l.burst, RetryAfter: retryAfter}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limiters[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = lim
	return lim
}

// Prune deletes limiters whose buckets are full.
func (l *Limiter) Prune() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.limiters)
	maps.DeleteFunc(l.limiters, func(_ string, lim *rate.Limiter) bool {
		return int(lim.TokensAt(now)) >= lim.Burst()
	})
	if after := len(l.limiters); after < before {
		l.logger.Debug("pruned rate limiters",
			zap.Int("rate_limiters_after_prune", after),
			zap.Int("rate_limiters_pruned", before-after),
		)
	}
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

// Run prunes on every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPruneInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Prune()
		case <-ctx.Done():
			return
		}
	}
}
