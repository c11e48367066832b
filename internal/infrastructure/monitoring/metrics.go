package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Each collector carries its own
// registry so multiple instances (tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsStopped prometheus.Counter
	SessionRetries  prometheus.Counter

	// Worker metrics
	WorkerSpawns prometheus.Counter
	WorkerExits  *prometheus.CounterVec // class: clean, abnormal, stopped

	// Event pipe metrics
	EventsEmitted   *prometheus.CounterVec // by event type
	EventsDropped   prometheus.Counter
	FramesForwarded prometheus.Counter
	DiagnosticLines prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "host_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		SessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_sessions_started_total",
				Help: "Total number of accepted session starts",
			},
		),
		SessionsStopped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_sessions_stopped_total",
				Help: "Total number of user-initiated session stops",
			},
		),
		SessionRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_session_retries_total",
				Help: "Total number of session retries from the error state",
			},
		),

		WorkerSpawns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_worker_spawns_total",
				Help: "Total number of worker processes spawned",
			},
		),
		WorkerExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_worker_exits_total",
				Help: "Total number of worker exits by class",
			},
			[]string{"class"},
		),

		EventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "host_events_emitted_total",
				Help: "Total number of typed worker events emitted",
			},
			[]string{"type"},
		),
		EventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_events_dropped_total",
				Help: "Total number of events dropped for lack of a subscriber",
			},
		),
		FramesForwarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_video_frames_total",
				Help: "Total number of video frames forwarded",
			},
		),
		DiagnosticLines: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "host_diagnostic_lines_total",
				Help: "Total number of worker output lines demoted to diagnostics",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "host_ws_connections",
				Help: "Number of open event stream connections",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "host_uptime_seconds",
				Help: "Host uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEvent records one emitted typed event.
func (m *Metrics) RecordEvent(eventType string) {
	m.EventsEmitted.WithLabelValues(eventType).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
		inner.ServeHTTP(w, r)
	})
}
