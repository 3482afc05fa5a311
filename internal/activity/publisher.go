package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wisedom/wisedom/internal/metrics"
)

const (
	// StreamKey is the Redis stream for contact activity.
	StreamKey = "stream:contact_activity"

	// DeadLetterStreamKey holds payloads the worker could not decode.
	DeadLetterStreamKey = "stream:contact_activity:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout bounds each asynchronous publish.
	PublishTimeout = 250 * time.Millisecond
)

// Publisher appends activity events to the stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	wg      sync.WaitGroup
}

// NewPublisher creates a publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "activity.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream and returns its stream ID.
func (p *Publisher) Publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// PublishAsync publishes in the background. Failures are logged and
// counted, never returned.
func (p *Publisher) PublishAsync(event Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("activity_publish_failed",
				"contact_id", event.ContactID,
				"kind", event.Kind,
				"error", err,
			)
			p.metrics.IncActivityPublished(metrics.StatusDropped)
			return
		}

		p.logger.Debug("activity_published",
			"contact_id", event.ContactID,
			"kind", event.Kind,
			"stream_id", streamID,
		)
		p.metrics.IncActivityPublished(metrics.StatusSuccess)
	}()
}

// Shutdown waits for in-flight publishes.
func (p *Publisher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
