package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "idea_incubator"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	domainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "events_total",
			Help:      "Domain operations that completed, by kind.",
		},
		[]string{"kind"},
	)

	collaborationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collaboration",
			Name:      "decisions_total",
			Help:      "Collaboration requests leaving pending, by resulting status.",
		},
		[]string{"status"},
	)

	realtimeDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "dropped_events_total",
			Help:      "Events dropped for slow websocket clients.",
		},
		[]string{"event"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Background job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		domainEvents,
		collaborationDecisions,
		realtimeDropped,
		rateLimited,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument wraps the router with HTTP metrics. Requests are labelled by the
// chi route pattern so ids never become label values.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// RecordDomainEvent counts a completed domain operation such as "idea_created".
func RecordDomainEvent(kind string) {
	domainEvents.WithLabelValues(kind).Inc()
}

// RecordCollaborationDecision counts a collaboration leaving pending.
func RecordCollaborationDecision(status string) {
	collaborationDecisions.WithLabelValues(status).Inc()
}

// RecordRealtimeDrop is wired as the hub's OnDrop callback.
func RecordRealtimeDrop(event string) {
	realtimeDropped.WithLabelValues(event).Inc()
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited() {
	rateLimited.Inc()
}

// RecordJobRun records a background job execution.
func RecordJobRun(job string, success bool) {
	if job == "" {
		job = "unknown"
	}
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}
