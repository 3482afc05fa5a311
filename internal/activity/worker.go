package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wisedom/wisedom/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "strength_workers"

	DefaultBatchSize       = 100
	DefaultBlockTimeout    = 5 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = time.Second
	DefaultClaimInterval   = 10 * time.Second
	DefaultClaimIdle       = 30 * time.Second
	DefaultMetricsInterval = 5 * time.Second
)

// ErrContactGone tells the worker a contact no longer exists; its events
// are acknowledged without retry.
var ErrContactGone = errors.New("contact no longer exists")

// StrengthUpdater recomputes and stores a contact's connection strength.
type StrengthUpdater interface {
	RecomputeStrength(ctx context.Context, contactID string) error
}

// Worker consumes activity events and refreshes connection strength.
type Worker struct {
	redis           *redis.Client
	updater         StrengthUpdater
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxRetries      int
	retryBackoff    time.Duration
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time

	started   bool
	draining  bool
	cancel    context.CancelFunc
	stopReads context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
}

// NewWorker creates a worker for the given consumer.
func NewWorker(client *redis.Client, updater StrengthUpdater, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		updater:         updater,
		logger:          logger.With("component", "activity.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxRetries:      DefaultMaxRetries,
		retryBackoff:    DefaultRetryBackoff,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetRetryBackoff overrides the base retry backoff.
func (w *Worker) SetRetryBackoff(d time.Duration) {
	if d > 0 {
		w.retryBackoff = d
	}
}

// SetClaim overrides how often and after how long pending entries are reclaimed.
func (w *Worker) SetClaim(interval, idle time.Duration) {
	if interval > 0 {
		w.claimInterval = interval
	}
	if idle > 0 {
		w.claimIdle = idle
	}
}

// Run consumes the stream until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	// Reads stop first on Shutdown. Processing keeps ctx until the deadline.
	readCtx, stopReads := context.WithCancel(ctx)
	w.stopReads = stopReads
	w.mu.Unlock()

	defer stopReads()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("activity_worker_started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()
		if draining {
			w.logger.Info("activity_worker_drained")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("activity_worker_stopped")
			return nil
		default:
		}

		if err := w.processOnce(readCtx, ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("activity_process_error", "error", err)
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
		}
	}
}

// Shutdown stops reading new entries and waits for the in-flight batch to
// be recomputed and acknowledged. When ctx expires first the batch is
// abandoned and stays pending for another consumer to reclaim.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel, stopReads, done := w.cancel, w.stopReads, w.done
	w.mu.Unlock()

	if stopReads != nil {
		stopReads()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("activity_worker_shutdown_timeout")
		if cancel != nil {
			cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// processOnce reads with readCtx and recomputes and acknowledges with ctx,
// so a batch that was read is finished even while draining.
func (w *Worker) processOnce(readCtx, ctx context.Context) error {
	w.maybeUpdateQueueDepth(readCtx)

	messages, err := w.maybeClaimPending(readCtx)
	if err != nil && readCtx.Err() == nil {
		w.logger.Warn("activity_claim_failed", "error", err)
	}
	if len(messages) == 0 {
		messages, err = w.readBatch(readCtx)
		if err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	events, ids := w.decodeBatch(ctx, messages)
	if len(events) > 0 {
		if err := w.updateWithRetry(ctx, uniqueContactIDs(events)); err != nil {
			// Leave the batch pending so another pass can reclaim it.
			return err
		}
	}

	w.metrics.ObserveActivityBatch(len(events), time.Since(start))
	return w.ack(ctx, ids)
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, next, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if next != "" {
		w.claimStartID = next
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.logger.Warn("activity_group_info_failed", "error", err)
		return
	}
	for _, g := range groups {
		if g.Name == ConsumerGroup {
			w.metrics.SetActivityQueueDepth(g.Pending + g.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return streams[0].Messages, nil
}

// decodeBatch returns the valid events and every message ID. Poison
// messages are dead-lettered and still acknowledged.
func (w *Worker) decodeBatch(ctx context.Context, messages []redis.XMessage) ([]Event, []string) {
	events := make([]Event, 0, len(messages))
	ids := make([]string, 0, len(messages))

	for _, msg := range messages {
		ids = append(ids, msg.ID)

		event, reason, err := decodeMessage(msg)
		if err != nil {
			w.deadLetter(ctx, msg, reason, err.Error())
			continue
		}
		events = append(events, event)
	}
	return events, ids
}

// decodeMessage parses one stream entry. On failure it also returns a
// short reason for the dead-letter record.
func decodeMessage(msg redis.XMessage) (Event, string, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return Event{}, "invalid_format", errors.New("payload field missing or not a string")
	}

	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, "unmarshal_error", err
	}
	if err := event.Validate(); err != nil {
		return Event{}, "validation_error", err
	}
	return event, "", nil
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("activity_dead_lettered",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"reason":           reason,
			"detail":           detail,
			"payload":          fmt.Sprint(msg.Values["payload"]),
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		w.logger.Error("activity_dead_letter_failed", "message_id", msg.ID, "error", err)
	}

	w.metrics.IncActivityProcessed("dead_lettered")
}

// updateWithRetry recomputes each contact, retrying only the ones that
// failed with exponential backoff.
func (w *Worker) updateWithRetry(ctx context.Context, contactIDs []string) error {
	pending := contactIDs
	var lastErr error

	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		pending, lastErr = w.updateContacts(ctx, pending)
		if len(pending) == 0 {
			return nil
		}
		if attempt == w.maxRetries {
			break
		}

		backoff := w.retryBackoff << (attempt - 1)
		w.logger.Warn("activity_update_retry",
			"attempt", attempt,
			"pending", len(pending),
			"backoff_ms", backoff.Milliseconds(),
			"error", lastErr,
		)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}

	for range pending {
		w.metrics.IncActivityProcessed(metrics.StatusFailed)
	}
	return fmt.Errorf("recompute %d contacts: %w", len(pending), lastErr)
}

// updateContacts returns the IDs that should be retried.
func (w *Worker) updateContacts(ctx context.Context, contactIDs []string) ([]string, error) {
	var failed []string
	var lastErr error

	for _, id := range contactIDs {
		err := w.updater.RecomputeStrength(ctx, id)
		switch {
		case err == nil:
			w.metrics.IncActivityProcessed(metrics.StatusSuccess)
		case errors.Is(err, ErrContactGone):
			w.metrics.IncActivityProcessed(metrics.StatusSkipped)
		default:
			if ctx.Err() != nil {
				return append(failed, id), ctx.Err()
			}
			failed = append(failed, id)
			lastErr = err
		}
	}
	return failed, lastErr
}

func (w *Worker) ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// uniqueContactIDs keeps the first occurrence of each contact.
func uniqueContactIDs(events []Event) []string {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.ContactID]; ok {
			continue
		}
		seen[e.ContactID] = struct{}{}
		ids = append(ids, e.ContactID)
	}
	return ids
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
