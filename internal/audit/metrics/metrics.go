package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit module.
type Metrics struct {
	// Store operation latencies by operation name
	StoreLatency *prometheus.HistogramVec

	// Mutations by action ("update_general", "create_finding", ...)
	Mutations *prometheus.CounterVec

	// Change notifications published
	NotificationsPublished prometheus.Counter

	// Report generations by outcome ("ok", "error")
	ReportGenerations *prometheus.CounterVec
}

// New creates a Metrics instance with all audit module metrics registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vulnreport_audit_store_duration_seconds",
			Help:    "Duration of audit store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vulnreport_audit_mutations_total",
			Help: "Total successful audit mutations by action",
		}, []string{"action"}),

		NotificationsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vulnreport_audit_notifications_total",
			Help: "Total audit change notifications published",
		}),

		ReportGenerations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vulnreport_audit_report_generations_total",
			Help: "Total report generation attempts by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveStoreLatency records one store call.
func (m *Metrics) ObserveStoreLatency(operation string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncMutation records a successful mutation.
func (m *Metrics) IncMutation(action string) {
	if m != nil {
		m.Mutations.WithLabelValues(action).Inc()
	}
}

// IncNotification records one published change notification.
func (m *Metrics) IncNotification() {
	if m != nil {
		m.NotificationsPublished.Inc()
	}
}

// IncReportGeneration records a report generation attempt.
func (m *Metrics) IncReportGeneration(outcome string) {
	if m != nil {
		m.ReportGenerations.WithLabelValues(outcome).Inc()
	}
}
