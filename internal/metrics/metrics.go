package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pack refresh collectors on a private registry so that
// several services can coexist in one process and in tests.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal    prometheus.Counter
	RefreshErrors   prometheus.Counter
	RefreshDuration prometheus.Histogram
	Entities        *prometheus.GaugeVec
	LintFindings    *prometheus.GaugeVec
	MapWrites       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RefreshTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spfpack_refresh_total",
			Help: "Total number of pack refreshes",
		}),
		RefreshErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "spfpack_refresh_errors_total",
			Help: "Total number of failed pack refreshes",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spfpack_refresh_duration_seconds",
			Help:    "Duration of scan, lint and index of a pack",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Entities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spfpack_entities",
			Help: "Entities in the last refresh by kind",
		}, []string{"kind"}),
		LintFindings: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spfpack_lint_findings",
			Help: "Lint findings in the last refresh by severity",
		}, []string{"severity"}),
		MapWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "spfpack_map_writes_total",
			Help: "Total number of MAP files written",
		}),
	}
}

// ObserveRefresh records a refresh that started at start.
func (m *Metrics) ObserveRefresh(start time.Time, err error) {
	m.RefreshTotal.Inc()
	if err != nil {
		m.RefreshErrors.Inc()
	}
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

// SetEntities replaces the per-kind entity gauges.
func (m *Metrics) SetEntities(byKind map[string]int) {
	m.Entities.Reset()
	for kind, n := range byKind {
		m.Entities.WithLabelValues(kind).Set(float64(n))
	}
}

func (m *Metrics) SetLintFindings(errors, warnings, infos int) {
	m.LintFindings.WithLabelValues("error").Set(float64(errors))
	m.LintFindings.WithLabelValues("warning").Set(float64(warnings))
	m.LintFindings.WithLabelValues("info").Set(float64(infos))
}

func (m *Metrics) IncrementMapWrites() {
	m.MapWrites.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
