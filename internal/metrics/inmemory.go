package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters. Labeled counters are keyed
// by their label values joined with ":".
type Snapshot struct {
	HTTPRequests        uint64
	RateLimited         map[string]uint64
	AuthAttempts        map[string]uint64
	Entities            map[string]uint64
	OAuthCallbacks      map[string]uint64
	ActivityPublished   map[string]uint64
	ActivityProcessed   map[string]uint64
	ActivityBatches     uint64
	ActivityBatchEvents uint64
	ActivityQueueDepth  int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests        uint64
	activityBatches     uint64
	activityBatchEvents uint64
	activityQueueDepth  int64

	mu       sync.Mutex
	counters map[string]map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{counters: make(map[string]map[string]uint64)}
}

func (m *InMemoryRecorder) inc(family, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[family]
	if !ok {
		c = make(map[string]uint64)
		m.counters[family] = c
	}
	c[label]++
}

func (m *InMemoryRecorder) family(name string) map[string]uint64 {
	out := make(map[string]uint64)
	maps.Copy(out, m.counters[name])
	return out
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		HTTPRequests:        atomic.LoadUint64(&m.httpRequests),
		RateLimited:         m.family("rate_limited"),
		AuthAttempts:        m.family("auth_attempts"),
		Entities:            m.family("entities"),
		OAuthCallbacks:      m.family("oauth_callbacks"),
		ActivityPublished:   m.family("activity_published"),
		ActivityProcessed:   m.family("activity_processed"),
		ActivityBatches:     atomic.LoadUint64(&m.activityBatches),
		ActivityBatchEvents: atomic.LoadUint64(&m.activityBatchEvents),
		ActivityQueueDepth:  atomic.LoadInt64(&m.activityQueueDepth),
	}
}

// ObserveHTTPRequest counts requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncRateLimited counts rejected requests by scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) { m.inc("rate_limited", scope) }

// IncAuthAttempt counts authentication outcomes.
func (m *InMemoryRecorder) IncAuthAttempt(result string) { m.inc("auth_attempts", result) }

// IncEntity counts entity lifecycle events.
func (m *InMemoryRecorder) IncEntity(entity, action string) { m.inc("entities", entity+":"+action) }

// IncOAuthCallback counts OAuth callback outcomes.
func (m *InMemoryRecorder) IncOAuthCallback(provider, result string) {
	m.inc("oauth_callbacks", provider+":"+result)
}

// IncActivityPublished counts stream publishes.
func (m *InMemoryRecorder) IncActivityPublished(status string) { m.inc("activity_published", status) }

// IncActivityProcessed counts processed stream entries.
func (m *InMemoryRecorder) IncActivityProcessed(status string) { m.inc("activity_processed", status) }

// ObserveActivityBatch records one processed batch.
func (m *InMemoryRecorder) ObserveActivityBatch(size int, _ time.Duration) {
	atomic.AddUint64(&m.activityBatches, 1)
	atomic.AddUint64(&m.activityBatchEvents, uint64(size))
}

// SetActivityQueueDepth records the pending stream length.
func (m *InMemoryRecorder) SetActivityQueueDepth(depth int64) {
	atomic.StoreInt64(&m.activityQueueDepth, depth)
}
