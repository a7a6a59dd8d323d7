package compactor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRunsTotal       = "registry_compaction_runs_total"
	MetricRunDuration     = "registry_compaction_duration_seconds"
	MetricRowsRebuilt     = "registry_compaction_rows_rebuilt"
	MetricDuplicatesTotal = "registry_compaction_duplicates_merged_total"
)

// Run status labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the Prometheus collectors of the compactor. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	duration    prometheus.Histogram
	rowsRebuilt *prometheus.GaugeVec
	duplicates  prometheus.Counter
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total number of compaction runs by status and failing step",
			},
			[]string{"status", "step"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Histogram of compaction run duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		rowsRebuilt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricRowsRebuilt,
				Help: "Rows written by the last successful compaction by table",
			},
			[]string{"kind"},
		),
		duplicates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricDuplicatesTotal,
				Help: "Total number of duplicate reference rows merged by compaction",
			},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.runsTotal, m.duration, m.rowsRebuilt, m.duplicates}
}

func (m *Metrics) observeSuccess(r *Report) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(StatusSuccess, "").Inc()
	m.duration.Observe(r.Duration.Seconds())
	m.rowsRebuilt.WithLabelValues("applicant").Set(float64(r.Applicants))
	m.rowsRebuilt.WithLabelValues("institution").Set(float64(r.Institutions))
	m.rowsRebuilt.WithLabelValues("parent").Set(float64(r.Parents))
	m.rowsRebuilt.WithLabelValues("benefit").Set(float64(r.Benefits))
	m.rowsRebuilt.WithLabelValues("information_source").Set(float64(r.InformationSources))
	m.rowsRebuilt.WithLabelValues("applicant_benefit").Set(float64(r.BenefitLinks))
	m.duplicates.Add(float64(r.DuplicatesMerged))
}

func (m *Metrics) observeFailure(step string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(StatusFailure, step).Inc()
	m.duration.Observe(seconds)
}
