// Package metrics holds the service's Prometheus collectors. They are
// registered on the default registry and exposed by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// status changes committed by the workflow, by target status
	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reimbursement_application_transitions_total",
			Help: "Total number of committed application status changes by target status",
		},
		[]string{"status"},
	)

	// workflow calls that failed, by error type
	WorkflowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reimbursement_workflow_errors_total",
			Help: "Total number of failed workflow operations by operation and error type",
		},
		[]string{"operation", "type"},
	)

	BatchesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reimbursement_payment_batches_generated_total",
			Help: "Total number of payment batches generated",
		},
	)

	PaymentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reimbursement_payments_created_total",
			Help: "Total number of payment records created",
		},
	)

	// success, failure
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reimbursement_notifications_total",
			Help: "Total number of submission notifications by result",
		},
		[]string{"result"},
	)

	// transfer, summary
	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reimbursement_export_duration_seconds",
			Help:    "Time spent rendering batch exports",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	ExportQueueRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reimbursement_export_queue_rejected_total",
			Help: "Total number of export jobs rejected because the queue was full",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
