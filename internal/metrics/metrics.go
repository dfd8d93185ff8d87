package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter

	problemsTotal      *prometheus.CounterVec
	corsDecisionsTotal *prometheus.CounterVec
	itemsTotal         *prometheus.CounterVec
	supervisorFatal    *prometheus.CounterVec
	allowedOrigins     prometheus.Gauge

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge
}

// New returns a fresh registry + standard collectors + pipeline metrics.
// Labels are bounded: route patterns, status codes and fixed enums only.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.15, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		problemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_problems_total",
			Help: "Problem responses written by status and title",
		}, []string{"status", "title"}),
		corsDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cors_decisions_total",
			Help: "CORS gate decisions for requests carrying an Origin header",
		}, []string{"decision"}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "items_processed_total",
			Help: "Item work completions by outcome",
		}, []string{"outcome"}),
		supervisorFatal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supervisor_fatal_total",
			Help: "Unrecovered panics in supervised background work",
		}, []string{"task"}),
		allowedOrigins: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cors_allowed_origins",
			Help: "Number of origins on the active CORS allow-list",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.problemsTotal,
		m.corsDecisionsTotal,
		m.itemsTotal,
		m.supervisorFatal,
		m.allowedOrigins,
		m.buildInfo,
		m.profilingActive,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry exposes the underlying registry for tests and extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) IncHttpPanic() { m.httpPanicTotal.Inc() }

// ObserveProblem counts a problem response. Titles come from a fixed set in
// code, never from client input, so they are safe as a label.
func (m *ServerMetrics) ObserveProblem(p problem.Problem) {
	m.problemsTotal.WithLabelValues(strconv.Itoa(p.Status), p.Title).Inc()
}

func (m *ServerMetrics) IncCORSDecision(decision string) {
	m.corsDecisionsTotal.WithLabelValues(decision).Inc()
}

func (m *ServerMetrics) IncItemProcessed(outcome string) {
	m.itemsTotal.WithLabelValues(outcome).Inc()
}

func (m *ServerMetrics) IncSupervisorFatal(task string) {
	m.supervisorFatal.WithLabelValues(task).Inc()
}

func (m *ServerMetrics) SetAllowedOrigins(n int) { m.allowedOrigins.Set(float64(n)) }

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         vi.AppName,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}
