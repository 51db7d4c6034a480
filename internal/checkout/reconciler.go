package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const reconcileScope = "payment_callback"

// PaymentVerifier confirms a hosted payment with the commerce API.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, slug, orderNumber, reference string) (commerce.PaymentVerification, error)
}

// Claimer records which callbacks were already handled. *idempotency.Manager satisfies it.
type Claimer interface {
	Claim(ctx context.Context, scope string, parts ...string) (bool, error)
	Release(ctx context.Context, scope string, parts ...string) error
}

// ReconcileStatus is the result of handling one payment callback.
type ReconcileStatus string

const (
	ReconcileVerified         ReconcileStatus = "verified"
	ReconcileAlreadyProcessed ReconcileStatus = "already_processed"
	ReconcileUnpaid           ReconcileStatus = "unpaid"
)

// ReconcileParams identifies a gateway return: the `order` and `reference` query
// parameters of the store page plus the shopper's cart for that store.
type ReconcileParams struct {
	Slug      string
	Order     string
	Reference string
	Cart      *cart.Cart
}

// ReconcileResult tells the caller where to send the shopper.
type ReconcileResult struct {
	Status        ReconcileStatus     `json:"status"`
	OrderNumber   string              `json:"orderNumber"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus,omitempty"`
	Destination   string              `json:"destination,omitempty"`
	CartCleared   bool                `json:"cartCleared"`
}

// Reconciler runs payment-callback recovery once per (store, order, reference).
type Reconciler struct {
	api     PaymentVerifier
	claims  Claimer
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewReconciler wires a Reconciler.
func NewReconciler(api PaymentVerifier, claims Claimer, logg *logger.Logger, m *metrics.CheckoutMetrics) (*Reconciler, error) {
	if api == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if claims == nil {
		return nil, fmt.Errorf("claimer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Reconciler{api: api, claims: claims, logg: logg, metrics: m}, nil
}

// TrackingPath is the order-tracking view for a placed order.
func TrackingPath(slug, orderNumber string) string {
	return fmt.Sprintf("/stores/%s/orders/%s", url.PathEscape(slug), url.PathEscape(orderNumber))
}

// Reconcile verifies the payment and clears the cart once it is settled. Repeated calls
// for the same callback report ReconcileAlreadyProcessed without contacting the API.
// A failed or unsettled verification releases the claim so the shopper can retry.
func (r *Reconciler) Reconcile(ctx context.Context, p ReconcileParams) (ReconcileResult, error) {
	slug := strings.TrimSpace(p.Slug)
	order := strings.TrimSpace(p.Order)
	reference := strings.TrimSpace(p.Reference)
	if slug == "" || order == "" || reference == "" {
		return ReconcileResult{}, pkgerrors.New(pkgerrors.CodeValidation, "store, order and reference are required")
	}

	ctx = r.logg.WithFields(ctx, map[string]any{
		"store_slug":   slug,
		"order_number": order,
		"reference":    reference,
	})
	result := ReconcileResult{OrderNumber: order, Destination: TrackingPath(slug, order)}

	claimed, err := r.claims.Claim(ctx, reconcileScope, slug, order, reference)
	if err != nil {
		r.metrics.IncReconciliation(metrics.ReconcileFailed)
		r.logg.Error(ctx, "checkout.reconcile.claim_failed", err)
		return ReconcileResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment callback could not be recorded")
	}
	if !claimed {
		r.metrics.IncReconciliation(metrics.ReconcileAlreadyProcessed)
		r.logg.Info(ctx, "checkout.reconcile.already_processed")
		result.Status = ReconcileAlreadyProcessed
		return result, nil
	}

	verification, err := r.api.VerifyPayment(ctx, slug, order, reference)
	if err != nil {
		r.release(ctx, slug, order, reference)
		r.metrics.IncFailure(metrics.StageVerifyPayment)
		r.metrics.IncReconciliation(metrics.ReconcileFailed)
		r.logg.Error(ctx, "checkout.reconcile.verify_failed", err)
		return ReconcileResult{}, asDependency(err, "payment could not be verified")
	}

	result.PaymentStatus = verification.PaymentStatus
	if !verification.PaymentStatus.IsSettled() {
		r.release(ctx, slug, order, reference)
		r.metrics.IncReconciliation(metrics.ReconcileUnpaid)
		r.logg.Warn(r.logg.WithField(ctx, "payment_status", verification.PaymentStatus.String()), "checkout.reconcile.unpaid")
		result.Status = ReconcileUnpaid
		result.Destination = ""
		return result, nil
	}

	if p.Cart != nil {
		p.Cart.Clear(ctx)
		result.CartCleared = true
	}
	r.metrics.IncReconciliation(metrics.ReconcileVerified)
	r.logg.Info(ctx, "checkout.reconcile.verified")
	result.Status = ReconcileVerified
	return result, nil
}

func (r *Reconciler) release(ctx context.Context, slug, order, reference string) {
	if err := r.claims.Release(ctx, reconcileScope, slug, order, reference); err != nil {
		r.logg.Error(ctx, "checkout.reconcile.release_failed", err)
	}
}
