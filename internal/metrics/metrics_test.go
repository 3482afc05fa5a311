package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncEntity("contact", ActionCreated)
	m.IncEntity("contact", ActionCreated)
	m.IncEntity("task", ActionDeleted)
	m.IncRateLimited("ip")
	m.IncAuthAttempt(StatusFailed)
	m.IncOAuthCallback("gmail", StatusSuccess)
	m.IncActivityPublished(StatusSuccess)
	m.IncActivityProcessed(StatusSkipped)
	m.ObserveActivityBatch(5, time.Millisecond)
	m.SetActivityQueueDepth(42)
	m.ObserveHTTPRequest("GET", "/api/v1/contacts", 200, time.Millisecond)

	snap := m.Snapshot()
	if snap.Entities["contact:created"] != 2 {
		t.Errorf("expected 2 contact creations, got %d", snap.Entities["contact:created"])
	}
	if snap.Entities["task:deleted"] != 1 {
		t.Errorf("expected 1 task deletion, got %d", snap.Entities["task:deleted"])
	}
	if snap.RateLimited["ip"] != 1 || snap.AuthAttempts[StatusFailed] != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.OAuthCallbacks["gmail:success"] != 1 {
		t.Errorf("expected 1 oauth callback, got %d", snap.OAuthCallbacks["gmail:success"])
	}
	if snap.ActivityBatches != 1 || snap.ActivityBatchEvents != 5 || snap.ActivityQueueDepth != 42 {
		t.Errorf("unexpected activity metrics %+v", snap)
	}
	if snap.HTTPRequests != 1 {
		t.Errorf("expected 1 request, got %d", snap.HTTPRequests)
	}
}

func TestInMemoryRecorder_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRateLimited("ip")
	snap := m.Snapshot()
	snap.RateLimited["ip"] = 100

	if m.Snapshot().RateLimited["ip"] != 1 {
		t.Error("mutating a snapshot must not affect the recorder")
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncEntity("contact", ActionUpdated)
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Entities["contact:updated"]; got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncEntity("contact", ActionCreated)
	p.IncRateLimited("ip")
	p.IncRateLimited("ip")
	p.SetActivityQueueDepth(7)
	p.ObserveHTTPRequest("GET", "/healthz", 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`wisedom_entity_events_total{action="created",entity="contact"} 1`,
		`wisedom_rate_limited_total{scope="ip"} 2`,
		"wisedom_activity_queue_depth 7",
		`wisedom_http_requests_total{method="GET",route="/healthz",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	r := NewNoop()
	r.IncEntity("contact", ActionCreated)
	r.ObserveActivityBatch(1, time.Second)
}
