// Package worker consumes domain events published by the API server.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogsphere/apiserver/internal/mq"
	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Subscriber consumes a channel until ctx is done. *mq.MQ satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// PhotoDeleter removes released images from the image host.
type PhotoDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Worker deletes released photos and records post and comment activity.
type Worker struct {
	subscriber Subscriber
	photos     PhotoDeleter
	logger     *zap.Logger
}

// New constructs a Worker. A nil photos disables the photo consumer.
func New(subscriber Subscriber, photos PhotoDeleter, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{subscriber: subscriber, photos: photos, logger: logger}
}

// Run consumes all channels until ctx is cancelled or a subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.photos != nil {
		g.Go(func() error { return w.consume(ctx, types.ChannelPhotos, w.handlePhoto) })
	} else {
		w.logger.Warn("image host disabled, not consuming released photos")
	}
	g.Go(func() error { return w.consume(ctx, types.ChannelPosts, w.handleActivity) })
	g.Go(func() error { return w.consume(ctx, types.ChannelComments, w.handleActivity) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Worker) consume(ctx context.Context, channel string, handler mq.Handler) error {
	w.logger.Info("subscribing", zap.String("channel", channel))
	err := w.subscriber.Subscribe(ctx, channel, handler)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("subscribe %s: %w", channel, err)
}

func (w *Worker) handlePhoto(ctx context.Context, msg mq.Message) error {
	event, err := services.DecodeEvent(msg)
	if err != nil {
		// Malformed payloads would fail forever; drop them.
		w.logger.Warn("dropping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	if event.Type != types.EventPhotoReleased || event.ObjectKey == "" {
		return nil
	}

	if err := w.photos.Delete(ctx, event.ObjectKey); err != nil {
		w.logger.Warn("failed to delete released photo",
			zap.String("key", event.ObjectKey),
			zap.Error(err),
		)
		return err
	}
	w.logger.Info("released photo deleted", zap.String("key", event.ObjectKey))
	return nil
}

func (w *Worker) handleActivity(_ context.Context, msg mq.Message) error {
	event, err := services.DecodeEvent(msg)
	if err != nil {
		w.logger.Warn("dropping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	w.logger.Info("activity",
		zap.String("type", string(event.Type)),
		zap.Int("post_id", event.PostID),
		zap.Int("comment_id", event.CommentID),
		zap.Int("user_id", event.UserID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
