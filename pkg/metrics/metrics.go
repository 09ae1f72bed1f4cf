package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xhad/bloodhound/internal/models"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// PrometheusMetrics holds every collector the crawler reports. All
// recorder methods are safe on a nil receiver so components can run
// without metrics.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	Crawls          *prometheus.CounterVec
	Hops            prometheus.Counter
	FetchDuration   *prometheus.HistogramVec
	OracleDecisions *prometheus.CounterVec
	OracleDuration  prometheus.Histogram
	SinkErrors      prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		Crawls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloodhound_crawls_total",
				Help: "Total number of finished crawls by stop reason",
			},
			[]string{"reason"},
		),
		Hops: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bloodhound_hops_total",
				Help: "Total number of documents appended to crawl paths",
			},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bloodhound_fetch_duration_seconds",
				Help:    "Time taken to download a page",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		OracleDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bloodhound_oracle_decisions_total",
				Help: "Oracle selections by kind",
			},
			[]string{"kind"}, // label: "url", "terminate", "empty" or "error"
		),
		OracleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bloodhound_oracle_duration_seconds",
				Help:    "Time taken by one oracle call",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		SinkErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bloodhound_sink_errors_total",
				Help: "Total number of documents a sink failed to publish",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *PrometheusMetrics) ObserveCrawl(reason models.StopReason) {
	if m == nil {
		return
	}
	m.Crawls.WithLabelValues(string(reason)).Inc()
}

func (m *PrometheusMetrics) ObserveHop() {
	if m == nil {
		return
	}
	m.Hops.Inc()
}

func (m *PrometheusMetrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.FetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveOracle records one oracle call. A failed call is counted under
// the "error" kind.
func (m *PrometheusMetrics) ObserveOracle(d time.Duration, sel models.Selection, err error) {
	if m == nil {
		return
	}
	kind := sel.Kind.String()
	if err != nil {
		kind = "error"
	}
	m.OracleDecisions.WithLabelValues(kind).Inc()
	m.OracleDuration.Observe(d.Seconds())
}

func (m *PrometheusMetrics) ObserveSinkError() {
	if m == nil {
		return
	}
	m.SinkErrors.Inc()
}
