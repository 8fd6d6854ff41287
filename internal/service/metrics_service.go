package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "classsync"

// MetricsSnapshot is the JSON summary served to admins.
type MetricsSnapshot struct {
	Uptime                   string    `json:"uptime"`
	RequestsTotal            uint64    `json:"requests_total"`
	RequestsInFlight         int64     `json:"requests_in_flight"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	AttendanceSessions       uint64    `json:"attendance_sessions"`
	AttendanceMarks          uint64    `json:"attendance_marks"`
	NotificationsFailed      uint64    `json:"notifications_failed"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// meanCounter accumulates a count and a total duration in nanoseconds.
type meanCounter struct {
	n     atomic.Uint64
	nanos atomic.Uint64
}

func (m *meanCounter) add(d time.Duration) {
	m.n.Add(1)
	m.nanos.Add(uint64(d.Nanoseconds()))
}

func (m *meanCounter) meanMillis() float64 {
	n := m.n.Load()
	if n == 0 {
		return 0
	}
	return float64(m.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns a private Prometheus registry plus the running
// totals behind Snapshot. Every method is safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler
	started  time.Time

	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	cacheOps     *prometheus.HistogramVec
	cacheRatio   prometheus.Gauge
	dbDuration   *prometheus.HistogramVec
	marks        *prometheus.CounterVec
	sessions     prometheus.Counter
	notifySent   *prometheus.CounterVec

	requests       meanCounter
	inFlight       atomic.Int64
	queries        meanCounter
	hits, misses   atomic.Uint64
	sessionCount   atomic.Uint64
	markCount      atomic.Uint64
	notifyFailures atomic.Uint64
}

// NewMetricsService registers the application collectors along with the Go
// runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		cacheOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_operation_seconds",
			Help:      "Cache latency by operation and result.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1},
		}, []string{"op", "result"}),
		cacheRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hit_ratio",
			Help:      "Cache hits over lookups since start.",
		}),
		dbDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Latency of instrumented database calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "attendance_marks_total",
			Help:      "Attendance marks applied, by result.",
		}, []string{"result"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "attendance_sessions_total",
			Help:      "Bulk attendance sessions applied.",
		}),
		notifySent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_sent_total",
			Help:      "Notification deliveries by kind and status.",
		}, []string{"kind", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpInFlight, m.cacheOps, m.cacheRatio, m.dbDuration,
		m.marks, m.sessions, m.notifySent,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RequestStarted marks a request in flight. Pair it with ObserveHTTPRequest.
func (m *MetricsService) RequestStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
	m.inFlight.Add(1)
}

// ObserveHTTPRequest records a finished request against its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.inFlight.Add(-1)
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.add(duration)
}

// RecordCacheOperation records a lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheOps.WithLabelValues("get", result).Observe(duration.Seconds())
	hits, misses := m.hits.Load(), m.misses.Load()
	m.cacheRatio.Set(float64(hits) / float64(hits+misses))
}

// ObserveCacheWrite records a cache set.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues("set", "ok").Observe(duration.Seconds())
}

// ObserveDBQuery records the latency of a named database call.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.queries.add(duration)
}

// RecordAttendanceSession counts one applied marking session.
func (m *MetricsService) RecordAttendanceSession(present, absent int) {
	if m == nil {
		return
	}
	m.sessions.Inc()
	m.marks.WithLabelValues("present").Add(float64(present))
	m.marks.WithLabelValues("absent").Add(float64(absent))
	m.sessionCount.Add(1)
	m.markCount.Add(uint64(present + absent))
}

// RecordNotification counts a delivery outcome.
func (m *MetricsService) RecordNotification(kind string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
		m.notifyFailures.Add(1)
	}
	m.notifySent.WithLabelValues(kind, status).Inc()
}

// Snapshot summarises the running totals.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits, misses := m.hits.Load(), m.misses.Load()
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return MetricsSnapshot{
		Uptime:                   time.Since(m.started).Round(time.Second).String(),
		RequestsTotal:            m.requests.n.Load(),
		RequestsInFlight:         m.inFlight.Load(),
		AverageRequestDurationMs: m.requests.meanMillis(),
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		DBQueryCount:             m.queries.n.Load(),
		AverageDBQueryDurationMs: m.queries.meanMillis(),
		AttendanceSessions:       m.sessionCount.Load(),
		AttendanceMarks:          m.markCount.Load(),
		NotificationsFailed:      m.notifyFailures.Load(),
		GeneratedAt:              time.Now().UTC(),
	}
}
