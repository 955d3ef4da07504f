package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/blogsphere/apiserver/internal/mq"
	"github.com/blogsphere/apiserver/types"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Publisher sends raw messages to a channel. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Events publishes domain events. A nil publisher turns every Emit into a no-op.
type Events struct {
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewEvents(publisher Publisher, logger *zap.Logger) *Events {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{publisher: publisher, logger: logger, now: time.Now}
}

// Enabled reports whether events reach a broker.
func (e *Events) Enabled() bool {
	return e != nil && e.publisher != nil
}

// Emit publishes the event on its channel. Publishing outlives request
// cancellation but is bounded by publishTimeout. Failures are logged and returned.
func (e *Events) Emit(ctx context.Context, event types.Event) error {
	if !e.Enabled() {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}

	channel := event.Type.Channel()
	if channel == "" {
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{mq.AttrType: string(event.Type)}
	if event.PostID > 0 {
		attrs[mq.AttrOrderingKey] = "post-" + strconv.Itoa(event.PostID)
	}

	id, err := e.publisher.Publish(ctx, channel, data, attrs)
	if err != nil {
		e.logger.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.String("channel", channel),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	e.logger.Debug("event published",
		zap.String("type", string(event.Type)),
		zap.String("message_id", id),
	)
	return nil
}

// DecodeEvent parses an event payload received from the queue.
func DecodeEvent(msg mq.Message) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		event.Type = types.EventType(msg.Attributes[mq.AttrType])
	}
	return event, nil
}
