package activity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/goleak"

	"github.com/wisedom/wisedom/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const contactA = "7b0c6f1e-8a62-4c43-9a0a-3b2a0c4e5d6f"
const contactB = "9d2e8a30-1c84-4e65-8b2c-5d4c2e6f7a81"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUpdater struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]int // remaining failures per contact
	gone     map[string]bool
}

func (f *fakeUpdater) RecomputeStrength(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.gone[id] {
		return ErrContactGone
	}
	if f.failures[id] > 0 {
		f.failures[id]--
		return errors.New("db unavailable")
	}
	return nil
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := NewEvent(contactA, "user-1", KindInteractionLogged, at)

	if _, err := ulid.ParseStrict(e.ID); err != nil {
		t.Errorf("expected ULID id, got %q: %v", e.ID, err)
	}
	if e.OccurredAt != at.UnixMilli() {
		t.Errorf("expected %d, got %d", at.UnixMilli(), e.OccurredAt)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("expected valid event, got %v", err)
	}
}

func TestEvent_Validate(t *testing.T) {
	valid := NewEvent(contactA, "user-1", KindInteractionDeleted, time.Now())

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"bad contact id", func(e *Event) { e.ContactID = "nope" }},
		{"missing user", func(e *Event) { e.UserID = "" }},
		{"unknown kind", func(e *Event) { e.Kind = "contact.exploded" }},
		{"missing time", func(e *Event) { e.OccurredAt = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	good, _ := json.Marshal(NewEvent(contactA, "user-1", KindInteractionLogged, time.Now()))
	invalid, _ := json.Marshal(Event{ContactID: "x", UserID: "u", Kind: KindInteractionLogged, OccurredAt: 1})

	tests := []struct {
		name       string
		values     map[string]interface{}
		wantReason string
	}{
		{"valid", map[string]interface{}{"payload": string(good)}, ""},
		{"missing payload", map[string]interface{}{"other": "x"}, "invalid_format"},
		{"bad json", map[string]interface{}{"payload": "{not json"}, "unmarshal_error"},
		{"invalid event", map[string]interface{}{"payload": string(invalid)}, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, reason, err := decodeMessage(redis.XMessage{ID: "1-0", Values: tt.values})
			if reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, reason)
			}
			if tt.wantReason == "" {
				if err != nil || event.ContactID != contactA {
					t.Errorf("expected decoded event, got %+v, %v", event, err)
				}
			} else if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUniqueContactIDs(t *testing.T) {
	events := []Event{
		{ContactID: contactA},
		{ContactID: contactB},
		{ContactID: contactA},
	}
	got := uniqueContactIDs(events)
	if strings.Join(got, ",") != contactA+","+contactB {
		t.Errorf("expected deduplicated order, got %v", got)
	}
}

func TestWorker_UpdateWithRetry(t *testing.T) {
	rec := metrics.NewInMemory()
	up := &fakeUpdater{
		failures: map[string]int{contactB: 1},
		gone:     map[string]bool{},
	}
	w := NewWorker(nil, up, discard(), "test", rec)
	w.SetRetryBackoff(time.Millisecond)

	if err := w.updateWithRetry(context.Background(), []string{contactA, contactB}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}

	// A once, B twice.
	if len(up.calls) != 3 {
		t.Errorf("expected 3 calls, got %v", up.calls)
	}
	if got := rec.Snapshot().ActivityProcessed[metrics.StatusSuccess]; got != 2 {
		t.Errorf("expected 2 successes, got %d", got)
	}
}

func TestWorker_UpdateWithRetry_GivesUp(t *testing.T) {
	rec := metrics.NewInMemory()
	up := &fakeUpdater{failures: map[string]int{contactA: 10}}
	w := NewWorker(nil, up, discard(), "test", rec)
	w.SetRetryBackoff(time.Millisecond)

	err := w.updateWithRetry(context.Background(), []string{contactA})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if len(up.calls) != DefaultMaxRetries {
		t.Errorf("expected %d attempts, got %d", DefaultMaxRetries, len(up.calls))
	}
	if got := rec.Snapshot().ActivityProcessed[metrics.StatusFailed]; got != 1 {
		t.Errorf("expected 1 failure, got %d", got)
	}
}

func TestWorker_GoneContactsAreSkipped(t *testing.T) {
	rec := metrics.NewInMemory()
	up := &fakeUpdater{gone: map[string]bool{contactA: true}}
	w := NewWorker(nil, up, discard(), "test", rec)

	if err := w.updateWithRetry(context.Background(), []string{contactA}); err != nil {
		t.Fatalf("expected gone contact to be skipped, got %v", err)
	}
	if got := rec.Snapshot().ActivityProcessed[metrics.StatusSkipped]; got != 1 {
		t.Errorf("expected 1 skipped, got %d", got)
	}
}

func TestWorker_ShutdownBeforeRun(t *testing.T) {
	w := NewWorker(nil, &fakeUpdater{}, discard(), "test", nil)
	if err := w.Shutdown(context.Background()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

type fakeLister struct {
	ids    []string
	before time.Time
}

func (f *fakeLister) ListStaleContactIDs(_ context.Context, before time.Time, _ int) ([]string, error) {
	f.before = before
	return f.ids, nil
}

func TestSweeper_SweepOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{ids: []string{contactA, contactB}}
	up := &fakeUpdater{failures: map[string]int{contactB: 1}}

	s := NewSweeper(lister, up, time.Hour, discard())
	s.now = func() time.Time { return now }

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 refreshed, got %d", n)
	}
	if !lister.before.Equal(now.Add(-time.Hour)) {
		t.Errorf("expected cutoff one interval ago, got %v", lister.before)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	lister := &fakeLister{ids: []string{contactA}}
	up := &fakeUpdater{}
	s := NewSweeper(lister, up, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		up.mu.Lock()
		n := len(up.calls)
		up.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweeper never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
}

func TestNewConsumerID_Unique(t *testing.T) {
	a, b := NewConsumerID(), NewConsumerID()
	if a == b {
		t.Error("expected unique consumer IDs")
	}
}
