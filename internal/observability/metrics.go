package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Post results recorded by IncrPost.
const (
	PostResultPosted     = "posted"
	PostResultUnbalanced = "unbalanced"
	PostResultInvalid    = "invalid"
	PostResultError      = "error"
)

// Metrics holds the ledger's Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Registry owns these metrics. Exposed so callers can gather or serve it.
	Registry *prometheus.Registry

	entriesPosted       *prometheus.CounterVec
	reportDuration      *prometheus.HistogramVec
	balanceComputations prometheus.Counter
	inconsistent        *prometheus.CounterVec
}

// NewMetrics registers all metrics in a private registry, so repeated calls
// (tests, multiple books in one process) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		entriesPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balancebook_entries_posted_total",
				Help: "Journal entry post attempts by result.",
			},
			[]string{"result"},
		),
		reportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "balancebook_report_duration_seconds",
				Help:    "Duration of statement generation by report.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
		balanceComputations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "balancebook_balance_computations_total",
				Help: "Account balance computations performed.",
			},
		),
		inconsistent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balancebook_inconsistent_statements_total",
				Help: "Generated statements that failed their accounting identity.",
			},
			[]string{"report"},
		),
	}
}

// IncrPost counts a post attempt.
func (m *Metrics) IncrPost(result string) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(result).Inc()
}

// RecordReportDuration records how long a report took to generate.
func (m *Metrics) RecordReportDuration(report string, d time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(report).Observe(d.Seconds())
}

// IncrBalanceComputation counts one computeBalance call.
func (m *Metrics) IncrBalanceComputation() {
	if m == nil {
		return
	}
	m.balanceComputations.Inc()
}

// IncrInconsistent counts a statement that failed its identity check.
func (m *Metrics) IncrInconsistent(report string) {
	if m == nil {
		return
	}
	m.inconsistent.WithLabelValues(report).Inc()
}

// PostCount returns the number of post attempts with the given result.
func (m *Metrics) PostCount(result string) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.entriesPosted.WithLabelValues(result))
}

// BalanceComputations returns the number of balance computations so far.
func (m *Metrics) BalanceComputations() float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.balanceComputations)
}

// InconsistentCount returns the number of inconsistent statements for a report.
func (m *Metrics) InconsistentCount(report string) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.inconsistent.WithLabelValues(report))
}

// counterValue extracts the current value of a counter.
func counterValue(c prometheus.Counter) float64 {
	pb := &dto.Metric{}
	if err := c.Write(pb); err != nil {
		return 0
	}
	if pb.Counter != nil && pb.Counter.Value != nil {
		return *pb.Counter.Value
	}
	return 0
}
