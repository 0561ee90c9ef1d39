package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for iSquat.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Rate limiting.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Moderation gateway.
	ModerationVerdictsTotal *prometheus.CounterVec
	ModerationDuration      prometheus.Histogram

	// Data quality and write path.
	RowsDroppedTotal       *prometheus.CounterVec
	SubmissionsTotal       *prometheus.CounterVec
	ApprovalDecisionsTotal *prometheus.CounterVec
	PhotoPurgesTotal       *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "isquat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "isquat_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_auth_failures_total",
			Help: "Total number of failed sign-ins and sign-ups.",
		}, []string{"action", "reason"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_auth_successes_total",
			Help: "Total number of successful sign-ins and sign-ups.",
		}, []string{"action"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		ModerationVerdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_moderation_verdicts_total",
			Help: "Total number of image moderation verdicts.",
		}, []string{"ok", "reason"}),

		ModerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "isquat_moderation_duration_seconds",
			Help:    "Duration of moderation model calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 12, 16},
		}),

		RowsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_rows_dropped_total",
			Help: "Total number of malformed rows discarded while reading.",
		}, []string{"entity", "reason"}),

		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_submissions_total",
			Help: "Total number of toilet and review submissions by outcome.",
		}, []string{"kind", "outcome"}),

		ApprovalDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_approval_decisions_total",
			Help: "Total number of admin decisions.",
		}, []string{"kind", "decision"}),

		PhotoPurgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isquat_photo_purges_total",
			Help: "Total number of photo objects purged from storage.",
		}, []string{"status"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "isquat_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.RateLimitRejectionsTotal,
		m.ModerationVerdictsTotal,
		m.ModerationDuration,
		m.RowsDroppedTotal,
		m.SubmissionsTotal,
		m.ApprovalDecisionsTotal,
		m.PhotoPurgesTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, pattern string, status, bytes int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pattern).Observe(elapsed.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, pattern).Observe(float64(bytes))
}

// IncAuthFailure increments the auth failure counter.
func (m *Metrics) IncAuthFailure(action, reason string) {
	m.AuthFailuresTotal.WithLabelValues(action, reason).Inc()
}

// IncAuthSuccess increments the auth success counter.
func (m *Metrics) IncAuthSuccess(action string) {
	m.AuthSuccessesTotal.WithLabelValues(action).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// ModerationVerdict records a moderation outcome and how long it took.
func (m *Metrics) ModerationVerdict(ok bool, reason string, elapsed time.Duration) {
	m.ModerationVerdictsTotal.WithLabelValues(strconv.FormatBool(ok), reason).Inc()
	m.ModerationDuration.Observe(elapsed.Seconds())
}

// RowDropped counts a malformed row discarded by the location repository.
func (m *Metrics) RowDropped(entity, reason string) {
	m.RowsDroppedTotal.WithLabelValues(entity, reason).Inc()
}

// IncSubmission counts a toilet or review submission outcome.
func (m *Metrics) IncSubmission(kind, outcome string) {
	m.SubmissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncDecision counts an admin approve or reject decision.
func (m *Metrics) IncDecision(kind, decision string) {
	m.ApprovalDecisionsTotal.WithLabelValues(kind, decision).Inc()
}

// IncPhotoPurge counts an attempt to delete a photo object.
func (m *Metrics) IncPhotoPurge(status string) {
	m.PhotoPurgesTotal.WithLabelValues(status).Inc()
}
