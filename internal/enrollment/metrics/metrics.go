package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrollment module. Tracks
// enrollment churn, duplicate attempts, and transaction latency.
type Metrics struct {
	EnrollmentsCreated  prometheus.Counter
	EnrollmentsDeleted  prometheus.Counter
	EnrollmentConflicts prometheus.Counter
	TxDuration          prometheus.Histogram
}

// New creates a new Metrics instance with all enrollment module metrics registered.
func New() *Metrics {
	return &Metrics{
		EnrollmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coursehub_enrollments_created_total",
			Help: "Total number of successful enrollments",
		}),
		EnrollmentsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coursehub_enrollments_deleted_total",
			Help: "Total number of enrollments deleted by their owner",
		}),
		EnrollmentConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coursehub_enrollment_conflicts_total",
			Help: "Total number of duplicate enrollment attempts rejected",
		}),
		TxDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursehub_enrollment_tx_duration_seconds",
			Help:    "Duration of enrollment transactions (insert/delete plus counter update)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful enrollment.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.EnrollmentsCreated.Inc()
	}
}

// IncrementDeleted records a successful unenrollment.
func (m *Metrics) IncrementDeleted() {
	if m != nil {
		m.EnrollmentsDeleted.Inc()
	}
}

// IncrementConflict records a rejected duplicate enrollment attempt.
func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.EnrollmentConflicts.Inc()
	}
}

// ObserveTx records the duration of an enrollment transaction.
// Call with time.Now() at the start of the transaction.
func (m *Metrics) ObserveTx(start time.Time) {
	if m != nil {
		m.TxDuration.Observe(time.Since(start).Seconds())
	}
}
