package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wisedom"

// PrometheusRecorder exports metrics on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	rateLimited       *prometheus.CounterVec
	authAttempts      *prometheus.CounterVec
	entities          *prometheus.CounterVec
	oauthCallbacks    *prometheus.CounterVec
	activityPublished *prometheus.CounterVec
	activityProcessed *prometheus.CounterVec
	activityBatchSize prometheus.Histogram
	activityBatchTime prometheus.Histogram
	activityQueue     prometheus.Gauge
}

// NewPrometheus registers every collector, plus Go and process collectors,
// on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		authAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by result.",
		}, []string{"result"}),
		entities: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_events_total",
			Help:      "Entity lifecycle events.",
		}, []string{"entity", "action"}),
		oauthCallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks by provider and result.",
		}, []string{"provider", "result"}),
		activityPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_published_total",
			Help:      "Activity events published to the stream.",
		}, []string{"status"}),
		activityProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_processed_total",
			Help:      "Activity events consumed by the strength worker.",
		}, []string{"status"}),
		activityBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activity_batch_size",
			Help:      "Events per processed batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),
		activityBatchTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activity_batch_duration_seconds",
			Help:      "Time to process one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		activityQueue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "activity_queue_depth",
			Help:      "Entries in the activity stream.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry for tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

func (p *PrometheusRecorder) IncAuthAttempt(result string) {
	p.authAttempts.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncEntity(entity, action string) {
	p.entities.WithLabelValues(entity, action).Inc()
}

func (p *PrometheusRecorder) IncOAuthCallback(provider, result string) {
	p.oauthCallbacks.WithLabelValues(provider, result).Inc()
}

func (p *PrometheusRecorder) IncActivityPublished(status string) {
	p.activityPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncActivityProcessed(status string) {
	p.activityProcessed.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveActivityBatch(size int, duration time.Duration) {
	p.activityBatchSize.Observe(float64(size))
	p.activityBatchTime.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetActivityQueueDepth(depth int64) {
	p.activityQueue.Set(float64(depth))
}
