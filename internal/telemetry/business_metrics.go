package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
type BusinessMetrics struct {
	// Checkout funnel
	CheckoutStarted   *prometheus.CounterVec
	CheckoutStep      *prometheus.CounterVec
	CheckoutCompleted *prometheus.CounterVec
	CheckoutAbandoned *prometheus.CounterVec

	// Inventory
	ReservationOutcomes  *prometheus.CounterVec
	ReservationsReleased *prometheus.CounterVec
	VariantsDemoted      *prometheus.CounterVec

	// Offers
	OffersApplied  *prometheus.CounterVec
	OffersRejected *prometheus.CounterVec

	// Orders
	OrdersCreated       *prometheus.CounterVec
	OrdersUpdated       *prometheus.CounterVec
	OrderValue          *prometheus.HistogramVec
	OrderItemCount      *prometheus.HistogramVec
	ConsistencyFailures *prometheus.CounterVec

	// Payments
	PaymentAttempts   *prometheus.CounterVec
	PaymentSucceeded  *prometheus.CounterVec
	PaymentFailed     *prometheus.CounterVec
	PaymentAPILatency *prometheus.HistogramVec

	// Cart
	CartUpdated *prometheus.CounterVec

	// Postal
	PostalLookups *prometheus.CounterVec

	// Background jobs
	JobsEnqueued  *prometheus.CounterVec
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Email delivery
	EmailSent   *prometheus.CounterVec
	EmailFailed *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "fusionx"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		// =======================================================================
		// Checkout funnel
		// =======================================================================
		CheckoutStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_started_total",
				Help:      "Checkouts entered with at least one reserved line",
			},
			[]string{"type"},
		),
		CheckoutStep: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_step_total",
				Help:      "Checkout steps completed",
			},
			[]string{"step"},
		),
		CheckoutCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_completed_total",
				Help:      "Checkouts finalized with a paid order",
			},
			[]string{"type"},
		),
		CheckoutAbandoned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_abandoned_total",
				Help:      "Checkouts dropped before payment",
			},
			[]string{"stage"},
		),

		// =======================================================================
		// Inventory
		// =======================================================================
		ReservationOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reservation_outcomes_total",
				Help:      "Cart lines by reservation outcome on checkout entry",
			},
			[]string{"outcome"},
		),
		ReservationsReleased: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reservations_released_total",
				Help:      "Reservations returned to stock",
			},
			[]string{"reason"},
		),
		VariantsDemoted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "variants_demoted_total",
				Help:      "Sold out variants moved down the listing after a sale",
			},
			nil,
		),

		// =======================================================================
		// Offers
		// =======================================================================
		OffersApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "offers_applied_total",
				Help:      "Offer codes applied to a checkout",
			},
			[]string{"code"},
		),
		OffersRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "offers_rejected_total",
				Help:      "Offer codes rejected by business rules",
			},
			[]string{"code", "reason"},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Pending orders created",
			},
			[]string{"type"},
		),
		OrdersUpdated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_updated_total",
				Help:      "Pending orders rewritten after a details change",
			},
			[]string{"type"},
		),
		OrderValue: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_rupees",
				Help:      "Paid order totals in rupees",
				Buckets:   []float64{250, 500, 1000, 2000, 5000, 10000, 25000},
			},
			[]string{"type"},
		),
		OrderItemCount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Lines per paid order",
				Buckets:   []float64{1, 2, 3, 5, 8, 13},
			},
			[]string{"type"},
		),
		ConsistencyFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "consistency_failures_total",
				Help:      "Transactions rolled back because a required write touched no rows",
			},
			[]string{"op"},
		),

		// =======================================================================
		// Payments
		// =======================================================================
		PaymentAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_attempts_total",
				Help:      "Payment orders opened with the provider",
			},
			[]string{"provider"},
		),
		PaymentSucceeded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_succeeded_total",
				Help:      "Payments verified and committed",
			},
			[]string{"provider"},
		),
		PaymentFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_failed_total",
				Help:      "Payments that failed verification or commit",
			},
			[]string{"provider", "reason"},
		),
		PaymentAPILatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_api_duration_seconds",
				Help:      "Payment provider call duration",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		// =======================================================================
		// Cart
		// =======================================================================
		CartUpdated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updated_total",
				Help:      "Cart mutations",
			},
			[]string{"action"},
		),

		// =======================================================================
		// Postal
		// =======================================================================
		PostalLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "postal_lookups_total",
				Help:      "PIN code lookups by the source that answered",
			},
			[]string{"source"},
		),

		// =======================================================================
		// Background jobs
		// =======================================================================
		JobsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_enqueued_total",
				Help:      "Jobs added to the queue",
			},
			[]string{"job_type"},
		),
		JobsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Jobs completed successfully",
			},
			[]string{"job_type"},
		),
		JobsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Job attempts that failed",
			},
			[]string{"job_type"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Job processing time",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job_type"},
		),

		// =======================================================================
		// Email delivery
		// =======================================================================
		EmailSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "email_sent_total",
				Help:      "Emails handed to the mail server",
			},
			[]string{"template"},
		),
		EmailFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "email_failed_total",
				Help:      "Emails that could not be sent",
			},
			[]string{"template"},
		),
	}

	return m
}

// Global instance for easy access from services and handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}
