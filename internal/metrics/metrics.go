// Package metrics provides instrumentation hooks with no-op, in-memory and
// Prometheus implementations.
package metrics

import "time"

// Entity lifecycle actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Outcome labels shared by several counters.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
	StatusSkipped = "skipped"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	IncRateLimited(scope string)
	IncAuthAttempt(result string)

	// Domain
	IncEntity(entity, action string)
	IncOAuthCallback(provider, result string)

	// Activity stream
	IncActivityPublished(status string)
	IncActivityProcessed(status string)
	ObserveActivityBatch(size int, duration time.Duration)
	SetActivityQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
