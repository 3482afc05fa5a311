package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (n *NoopRecorder) IncRateLimited(string)                                 {}
func (n *NoopRecorder) IncAuthAttempt(string)                                 {}
func (n *NoopRecorder) IncEntity(string, string)                              {}
func (n *NoopRecorder) IncOAuthCallback(string, string)                       {}
func (n *NoopRecorder) IncActivityPublished(string)                           {}
func (n *NoopRecorder) IncActivityProcessed(string)                           {}
func (n *NoopRecorder) ObserveActivityBatch(int, time.Duration)               {}
func (n *NoopRecorder) SetActivityQueueDepth(int64)                           {}
