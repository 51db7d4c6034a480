package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure stages reported by the checkout flow.
const (
	StagePlaceOrder        = "place_order"
	StageInitializePayment = "initialize_payment"
	StageVerifyPayment     = "verify_payment"
)

// Reconciliation outcomes reported by payment-callback recovery.
const (
	ReconcileVerified         = "verified"
	ReconcileAlreadyProcessed = "already_processed"
	ReconcileUnpaid           = "unpaid"
	ReconcileFailed           = "failed"
)

// CheckoutMetrics records checkout outcomes.
type CheckoutMetrics struct {
	ordersPlaced    *prometheus.CounterVec
	failures        *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_orders_placed_total",
		Help:      "Orders accepted by the commerce API, by payment method.",
	}, []string{"payment_method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_failures_total",
		Help:      "Checkout calls that failed, by stage.",
	}, []string{"stage"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_reconciliations_total",
		Help:      "Payment-callback reconciliations, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersPlaced, failures, reconciliations)
	return &CheckoutMetrics{
		ordersPlaced:    ordersPlaced,
		failures:        failures,
		reconciliations: reconciliations,
	}
}

// IncOrderPlaced counts an order accepted for the given payment method.
func (c *CheckoutMetrics) IncOrderPlaced(method string) {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncFailure counts a failed call at stage.
func (c *CheckoutMetrics) IncFailure(stage string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncReconciliation counts a reconciliation attempt by outcome.
func (c *CheckoutMetrics) IncReconciliation(outcome string) {
	if c == nil || c.reconciliations == nil {
		return
	}
	c.reconciliations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// DependencyMetrics times calls to remote services.
type DependencyMetrics struct {
	duration *prometheus.HistogramVec
}

// NewDependencyMetrics registers the dependency latency histogram.
func NewDependencyMetrics(reg prometheus.Registerer) *DependencyMetrics {
	if reg == nil {
		return &DependencyMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "commerce_request_duration_seconds",
		Help:      "Duration of commerce API calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration)
	return &DependencyMetrics{duration: duration}
}

// Observe records how long operation took and whether it succeeded.
func (d *DependencyMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if d == nil || d.duration == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	d.duration.WithLabelValues(normalizeLabel(operation), outcome).Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
