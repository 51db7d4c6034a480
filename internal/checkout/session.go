// Package checkout drives a shopper from cart review to a placed order and reconciles
// hosted payments when the shopper returns from the gateway.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/pricing"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// ErrSessionClosed is returned when a response arrives after the session was closed or reset.
// The response is dropped without touching the cart or the session.
var ErrSessionClosed = errors.New("checkout: session closed")

// OrderAPI is the slice of the commerce API used to place orders.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, slug string, req commerce.OrderRequest) (commerce.PlacedOrder, error)
	InitializePayment(ctx context.Context, slug string, req commerce.PaymentInitRequest) (commerce.PaymentSession, error)
}

// CallbackURLFunc builds the URL the payment gateway returns the shopper to.
type CallbackURLFunc func(slug, orderNumber string) string

// CallbackURL returns a CallbackURLFunc rooted at baseURL. The gateway appends `reference`.
func CallbackURL(baseURL string) CallbackURLFunc {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return func(slug, orderNumber string) string {
		return fmt.Sprintf("%s/stores/%s?order=%s", base, url.PathEscape(slug), url.QueryEscape(orderNumber))
	}
}

// SessionParams wires a Session.
type SessionParams struct {
	Cart                      *cart.Cart
	Store                     commerce.Store
	API                       OrderAPI
	Logger                    *logger.Logger
	Metrics                   *metrics.CheckoutMetrics
	CallbackURL               CallbackURLFunc
	MinimumOrderPolicy        string
	DefaultPlatformFeePercent *decimal.Decimal
}

// Outcome describes where a submitted checkout ended up. RedirectURL is set for hosted
// payments; the cart stays intact until that payment is verified.
type Outcome struct {
	Step          enums.CheckoutStep    `json:"step"`
	OrderNumber   string                `json:"orderNumber"`
	PaymentMethod enums.PaymentMethod   `json:"paymentMethod"`
	RedirectURL   string                `json:"redirectUrl,omitempty"`
	Total         decimal.Decimal       `json:"total"`
	Quote         pricing.Quote         `json:"quote"`
	BankDetails   *commerce.BankDetails `json:"bankDetails,omitempty"`
	StorePhone    string                `json:"storePhone,omitempty"`
	StoreEmail    string                `json:"storeEmail,omitempty"`
}

// State is a read-only view of a session.
type State struct {
	Step          enums.CheckoutStep  `json:"step"`
	Submitting    bool                `json:"submitting"`
	OrderNumber   string              `json:"orderNumber,omitempty"`
	RedirectURL   string              `json:"redirectUrl,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod,omitempty"`
	Details       CustomerDetails     `json:"details"`
	CartCleared   bool                `json:"cartCleared"`
	ItemCount     int                 `json:"itemCount"`
}

// Session is the state machine cart -> details -> (online_redirect | confirmation).
// Methods are safe for concurrent use; network calls run outside the lock and their
// responses are dropped if the session was closed or reset in the meantime.
type Session struct {
	mu sync.Mutex

	cart        *cart.Cart
	store       commerce.Store
	api         OrderAPI
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics
	callbackURL CallbackURLFunc
	enforceMin  bool
	defaultFee  *decimal.Decimal

	step        enums.CheckoutStep
	details     CustomerDetails
	method      enums.PaymentMethod
	submitting  bool
	orderNumber string
	redirectURL string
	cartCleared bool
	generation  uint64
	closed      bool
}

// NewSession starts a session on the cart step.
func NewSession(p SessionParams) (*Session, error) {
	if p.Cart == nil {
		return nil, cart.ErrContextUnavailable
	}
	if p.API == nil {
		return nil, fmt.Errorf("order api required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.CallbackURL == nil {
		p.CallbackURL = CallbackURL("")
	}
	return &Session{
		cart:        p.Cart,
		store:       p.Store,
		api:         p.API,
		logg:        p.Logger,
		metrics:     p.Metrics,
		callbackURL: p.CallbackURL,
		enforceMin:  p.MinimumOrderPolicy == config.MinimumOrderEnforce,
		defaultFee:  p.DefaultPlatformFeePercent,
		step:        enums.CheckoutStepCart,
	}, nil
}

func stepError(format string, args ...any) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf(format, args...))
}

// Proceed moves from the cart step to the details step.
func (s *Session) Proceed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.step != enums.CheckoutStepCart {
		return stepError("cannot proceed from %s", s.step)
	}
	if s.cart.IsEmpty() {
		return stepError("cart is empty")
	}
	if !s.store.CanTakeOrders() {
		return stepError("store is not accepting orders")
	}
	s.step = enums.CheckoutStepDetails
	return nil
}

// Back returns from the details step to the cart step.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.step != enums.CheckoutStepDetails || s.submitting {
		return stepError("cannot go back from %s", s.step)
	}
	s.step = enums.CheckoutStepCart
	return nil
}

// SetDetails replaces the customer form.
func (s *Session) SetDetails(details CustomerDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = details
}

// SelectPayment records the chosen payment method. Availability is checked by Validate.
func (s *Session) SelectPayment(method enums.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.method = method
}

// Validate returns the per-field problems blocking submission.
func (s *Session) Validate() FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() FieldErrors {
	errs := ValidateDetails(s.details, s.method, s.store)
	if s.cart.IsEmpty() {
		errs[FieldCart] = "cart is empty"
	}
	if s.enforceMin {
		if q := s.quoteLocked(); q.MinimumOrderViolation {
			errs[FieldMinimumOrder] = fmt.Sprintf("minimum order is %s", q.MinimumOrder)
		}
	}
	return errs
}

// CanPlaceOrder reports whether the place-order action is enabled.
func (s *Session) CanPlaceOrder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.submitting || s.step != enums.CheckoutStepDetails {
		return false
	}
	return len(s.validateLocked()) == 0
}

// Quote prices the cart for display. It is never authoritative.
func (s *Session) Quote() pricing.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

func (s *Session) quoteLocked() pricing.Quote {
	return pricing.Calculate(pricing.Input{
		Items:                     s.cart.Items(),
		Store:                     s.store,
		DeliveryAddress:           s.details.Address,
		PaymentMethod:             s.method,
		DefaultPlatformFeePercent: s.defaultFee,
	})
}

// PlaceOrder submits the order from the details step. Validation problems come back as a
// VALIDATION_ERROR carrying FieldErrors; remote failures leave the session on the details
// step so the shopper can retry.
func (s *Session) PlaceOrder(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrSessionClosed
	}
	if s.step != enums.CheckoutStepDetails {
		s.mu.Unlock()
		return Outcome{}, stepError("cannot place order from %s", s.step)
	}
	if s.submitting {
		s.mu.Unlock()
		return Outcome{}, stepError("order submission already in progress")
	}
	if errs := s.validateLocked(); len(errs) > 0 {
		s.mu.Unlock()
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout details are invalid").WithDetails(errs)
	}

	details := s.details.Normalized()
	method := s.method
	quote := s.quoteLocked()
	req := commerce.OrderRequest{
		CustomerName:    details.Name,
		CustomerPhone:   details.Phone,
		CustomerEmail:   details.Email,
		CustomerAddress: details.Address,
		DeliveryNotes:   details.Notes,
		FulfillmentType: details.Fulfillment(),
		PaymentMethod:   method,
		Items:           orderItems(s.cart.Items()),
	}
	slug := s.store.Slug
	if slug == "" {
		slug = s.cart.Slug()
	}
	s.submitting = true
	gen := s.generation
	s.mu.Unlock()

	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_method": method.String(),
		"fulfillment":    req.FulfillmentType.String(),
		"items":          len(req.Items),
	})

	placed, err := s.api.PlaceOrder(ctx, slug, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(gen) {
		s.logg.Warn(ctx, "checkout.place_order.discarded")
		return Outcome{}, ErrSessionClosed
	}
	if err != nil {
		s.submitting = false
		s.metrics.IncFailure(metrics.StagePlaceOrder)
		s.logg.Error(ctx, "checkout.place_order.failed", err)
		return Outcome{}, asDependency(err, "order could not be placed")
	}

	s.orderNumber = placed.OrderNumber
	s.metrics.IncOrderPlaced(method.String())
	ctx = s.logg.WithField(ctx, "order_number", placed.OrderNumber)
	s.logg.Info(ctx, "checkout.place_order.accepted")

	outcome := Outcome{
		OrderNumber:   placed.OrderNumber,
		PaymentMethod: method,
		Total:         placed.Total,
		Quote:         quote,
		StorePhone:    s.store.Phone,
		StoreEmail:    s.store.Email,
	}

	if method == enums.PaymentMethodOnline && details.Email != "" {
		initReq := commerce.PaymentInitRequest{
			OrderNumber: placed.OrderNumber,
			Email:       details.Email,
			CallbackURL: s.callbackURL(slug, placed.OrderNumber),
		}
		s.mu.Unlock()
		paySession, initErr := s.api.InitializePayment(ctx, slug, initReq)
		s.mu.Lock()
		if s.stale(gen) {
			s.logg.Warn(ctx, "checkout.initialize_payment.discarded")
			return outcome, ErrSessionClosed
		}
		switch {
		case initErr != nil:
			s.metrics.IncFailure(metrics.StageInitializePayment)
			s.logg.Error(ctx, "checkout.initialize_payment.failed", initErr)
		case strings.TrimSpace(paySession.AuthorizationURL) == "":
			s.metrics.IncFailure(metrics.StageInitializePayment)
			s.logg.Warn(ctx, "checkout.initialize_payment.empty_url")
		default:
			s.step = enums.CheckoutStepOnlineRedirect
			s.submitting = false
			s.redirectURL = paySession.AuthorizationURL
			outcome.Step = s.step
			outcome.RedirectURL = paySession.AuthorizationURL
			return outcome, nil
		}
	}

	s.cart.Clear(ctx)
	s.cartCleared = true
	s.step = enums.CheckoutStepConfirmation
	s.submitting = false
	outcome.Step = s.step
	if method == enums.PaymentMethodBankTransfer {
		outcome.BankDetails = s.store.BankDetails
	}
	return outcome, nil
}

// Dismiss closes the checkout panel and resets the session to the cart step. After a
// confirmation the cart is cleared if that has not happened yet. Responses still in flight
// are discarded.
func (s *Session) Dismiss(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == enums.CheckoutStepConfirmation && !s.cartCleared {
		s.cart.Clear(ctx)
	}
	s.generation++
	s.step = enums.CheckoutStepCart
	s.details = CustomerDetails{}
	s.method = ""
	s.submitting = false
	s.orderNumber = ""
	s.redirectURL = ""
	s.cartCleared = false
}

// Close discards any response still in flight and rejects further transitions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.closed = true
	s.submitting = false
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Step:          s.step,
		Submitting:    s.submitting,
		OrderNumber:   s.orderNumber,
		RedirectURL:   s.redirectURL,
		PaymentMethod: s.method,
		Details:       s.details,
		CartCleared:   s.cartCleared,
		ItemCount:     s.cart.Count(),
	}
}

func (s *Session) stale(gen uint64) bool {
	return s.closed || s.generation != gen
}

func orderItems(items []cart.LineItem) []commerce.OrderItem {
	out := make([]commerce.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, commerce.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// asDependency keeps typed commerce errors and wraps anything else as a dependency failure.
func asDependency(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
