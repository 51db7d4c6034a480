package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
)

func emptyCart(t *testing.T) *cart.Cart {
	t.Helper()
	c, err := cart.Open(context.Background(), &cart.Binding{Slug: "mama-put", Storage: memory.New(0)}, nil)
	require.NoError(t, err)
	return c
}

func TestEmptyCartCannotProceed(t *testing.T) {
	c := emptyCart(t)
	s := newSession(t, c, &fakeAPI{})

	assert.Equal(t, 0, c.Count())
	err := s.Proceed()
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.CheckoutStepCart, s.Snapshot().Step)
	assert.False(t, s.CanPlaceOrder())
}

func TestProceedRequiresOpenStore(t *testing.T) {
	s := newSession(t, filledCart(t), &fakeAPI{}, func(p *SessionParams) { p.Store.AcceptOrders = false })
	assert.True(t, pkgerrors.HasCode(s.Proceed(), pkgerrors.CodeStateConflict))
}

func TestNewSessionRequiresCartAndAPI(t *testing.T) {
	_, err := NewSession(SessionParams{API: &fakeAPI{}})
	assert.ErrorIs(t, err, cart.ErrContextUnavailable)

	_, err = NewSession(SessionParams{Cart: emptyCart(t)})
	assert.Error(t, err)
}

func TestBackReturnsToCart(t *testing.T) {
	s := newSession(t, filledCart(t), &fakeAPI{})
	require.Error(t, s.Back())
	require.NoError(t, s.Proceed())
	require.NoError(t, s.Back())
	assert.Equal(t, enums.CheckoutStepCart, s.Snapshot().Step)
}

func TestCanPlaceOrderGating(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Session)
		want   bool
	}{
		{name: "valid", mutate: func(*Session) {}, want: true},
		{name: "invalid name", mutate: func(s *Session) { d := validDetails(); d.Name = "A"; s.SetDetails(d) }, want: false},
		{name: "invalid phone", mutate: func(s *Session) { d := validDetails(); d.Phone = "12345"; s.SetDetails(d) }, want: false},
		{name: "invalid email", mutate: func(s *Session) { d := validDetails(); d.Email = "nope"; s.SetDetails(d) }, want: false},
		{name: "no payment method", mutate: func(s *Session) { s.SelectPayment("") }, want: false},
		{name: "back on cart step", mutate: func(s *Session) { _ = s.Back() }, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := detailsSession(t, filledCart(t), &fakeAPI{}, "CASH")
			tc.mutate(s)
			assert.Equal(t, tc.want, s.CanPlaceOrder())
		})
	}
}

func TestCanPlaceOrderFalseWhenCartEmptiedOnDetails(t *testing.T) {
	ctx := context.Background()
	c := filledCart(t)
	s := detailsSession(t, c, &fakeAPI{}, "CASH")
	require.True(t, s.CanPlaceOrder())

	c.Clear(ctx)
	assert.False(t, s.CanPlaceOrder())
	assert.True(t, s.Validate().Has(FieldCart))
}

func TestOnlinePaymentRedirectsWithoutClearingCart(t *testing.T) {
	ctx := context.Background()
	c := filledCart(t)
	api := &fakeAPI{
		placed:  commerce.PlacedOrder{OrderNumber: "ORD-1", Total: decimal.NewFromInt(3650)},
		payment: commerce.PaymentSession{AuthorizationURL: "https://checkout.gateway.test/abc"},
	}
	s := detailsSession(t, c, api, "ONLINE")

	outcome, err := s.PlaceOrder(ctx)
	require.NoError(t, err)

	assert.Equal(t, enums.CheckoutStepOnlineRedirect, outcome.Step)
	assert.Equal(t, "https://checkout.gateway.test/abc", outcome.RedirectURL)
	assert.Equal(t, "ORD-1", outcome.OrderNumber)
	assert.Equal(t, 5, c.Count())

	require.Len(t, api.inits, 1)
	assert.Equal(t, "https://shop.example.ng/stores/mama-put?order=ORD-1", api.inits[0].CallbackURL)
	assert.Equal(t, "ada@example.com", api.inits[0].Email)

	state := s.Snapshot()
	assert.Equal(t, enums.CheckoutStepOnlineRedirect, state.Step)
	assert.False(t, state.Submitting)
	assert.False(t, state.CartCleared)
}

func TestCashOrderClearsCartAndConfirms(t *testing.T) {
	ctx := context.Background()
	store := memory.New(0)
	c := filledCartIn(t, store)
	api := &fakeAPI{placed: commerce.PlacedOrder{OrderNumber: "ORD-2"}}
	s := detailsSession(t, c, api, "CASH")

	outcome, err := s.PlaceOrder(ctx)
	require.NoError(t, err)

	assert.Equal(t, enums.CheckoutStepConfirmation, outcome.Step)
	assert.Empty(t, outcome.RedirectURL)
	assert.Nil(t, outcome.BankDetails)
	assert.Empty(t, api.inits)
	assert.True(t, c.IsEmpty())

	require.Len(t, api.orders, 1)
	req := api.orders[0]
	assert.Equal(t, "08031234567", req.CustomerPhone)
	assert.Equal(t, enums.FulfillmentPickup, req.FulfillmentType)
	assert.Equal(t, []commerce.OrderItem{{ProductID: "jollof", Quantity: 2}, {ProductID: "plantain", Quantity: 3}}, req.Items)

	reloaded, err := cart.Open(ctx, &cart.Binding{Slug: "mama-put", Storage: store}, nil)
	require.NoError(t, err)
	assert.True(t, reloaded.IsEmpty())
}

func TestBankTransferConfirmationCarriesBankDetails(t *testing.T) {
	api := &fakeAPI{placed: commerce.PlacedOrder{OrderNumber: "ORD-3"}}
	s := detailsSession(t, filledCart(t), api, "BANK_TRANSFER")

	outcome, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome.BankDetails)
	assert.Equal(t, "0123456789", outcome.BankDetails.AccountNumber)
	assert.Equal(t, "08031234567", outcome.StorePhone)
}

func TestDeliveryAddressSetsFulfillmentAndFee(t *testing.T) {
	api := &fakeAPI{placed: commerce.PlacedOrder{OrderNumber: "ORD-4"}}
	s := detailsSession(t, filledCart(t), api, "CASH", func(p *SessionParams) {
		p.Store.DeliveryEnabled = true
		p.Store.DeliveryFee = decimal.NewFromInt(1500)
	})
	details := validDetails()
	details.Address = "12 Admiralty Way, Lekki Phase 1"
	s.SetDetails(details)

	quote := s.Quote()
	assert.Equal(t, enums.FulfillmentDelivery, quote.Fulfillment)
	assert.False(t, quote.Authoritative)

	outcome, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentDelivery, api.orders[0].FulfillmentType)
	assert.Equal(t, quote.GrandTotal, outcome.Quote.GrandTotal)
}

func TestOnlineInitializationFailureFallsBackToConfirmation(t *testing.T) {
	cases := map[string]*fakeAPI{
		"error": {
			placed:  commerce.PlacedOrder{OrderNumber: "ORD-5"},
			initErr: pkgerrors.New(pkgerrors.CodeDependency, "gateway down"),
		},
		"empty url": {
			placed: commerce.PlacedOrder{OrderNumber: "ORD-5"},
		},
	}
	for name, api := range cases {
		t.Run(name, func(t *testing.T) {
			c := filledCart(t)
			s := detailsSession(t, c, api, "ONLINE")

			outcome, err := s.PlaceOrder(context.Background())
			require.NoError(t, err)
			assert.Equal(t, enums.CheckoutStepConfirmation, outcome.Step)
			assert.Empty(t, outcome.RedirectURL)
			assert.True(t, c.IsEmpty())
		})
	}
}

func TestPlaceOrderFailureKeepsDetailsForRetry(t *testing.T) {
	ctx := context.Background()
	c := filledCart(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewCheckoutMetrics(reg)
	api := &fakeAPI{placeErr: errors.New("connection reset")}
	s := detailsSession(t, c, api, "CASH", func(p *SessionParams) { p.Metrics = m })

	_, err := s.PlaceOrder(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	state := s.Snapshot()
	assert.Equal(t, enums.CheckoutStepDetails, state.Step)
	assert.False(t, state.Submitting)
	assert.Equal(t, 5, c.Count())
	failures, err := testutil.GatherAndCount(reg, "storefront_checkout_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)

	api.placeErr = nil
	api.placed = commerce.PlacedOrder{OrderNumber: "ORD-6"}
	outcome, err := s.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-6", outcome.OrderNumber)
	assert.Equal(t, 2, api.orderCount())
}

func TestPlaceOrderReturnsFieldErrors(t *testing.T) {
	api := &fakeAPI{}
	s := detailsSession(t, filledCart(t), api, "")

	_, err := s.PlaceOrder(context.Background())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	fields, ok := typed.Details().(FieldErrors)
	require.True(t, ok)
	assert.True(t, fields.Has(FieldPaymentMethod))
	assert.Equal(t, 0, api.orderCount())
}

func TestPlaceOrderOutsideDetailsStep(t *testing.T) {
	s := newSession(t, filledCart(t), &fakeAPI{})
	_, err := s.PlaceOrder(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestMinimumOrderPolicy(t *testing.T) {
	withMinimum := func(policy string) func(*SessionParams) {
		return func(p *SessionParams) {
			p.Store.MinimumOrderAmount = decimal.NewFromInt(5000)
			p.MinimumOrderPolicy = policy
		}
	}

	advisory := detailsSession(t, filledCart(t), &fakeAPI{placed: commerce.PlacedOrder{OrderNumber: "ORD-7"}}, "CASH", withMinimum(config.MinimumOrderAdvisory))
	assert.True(t, advisory.Quote().MinimumOrderViolation)
	assert.True(t, advisory.CanPlaceOrder())
	_, err := advisory.PlaceOrder(context.Background())
	require.NoError(t, err)

	api := &fakeAPI{}
	enforced := detailsSession(t, filledCart(t), api, "CASH", withMinimum(config.MinimumOrderEnforce))
	assert.False(t, enforced.CanPlaceOrder())
	assert.Equal(t, "minimum order is ₦5,000", enforced.Validate()[FieldMinimumOrder])
	_, err = enforced.PlaceOrder(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 0, api.orderCount())
}

func TestDismissAfterConfirmationResets(t *testing.T) {
	ctx := context.Background()
	c := filledCart(t)
	s := detailsSession(t, c, &fakeAPI{placed: commerce.PlacedOrder{OrderNumber: "ORD-8"}}, "CASH")
	_, err := s.PlaceOrder(ctx)
	require.NoError(t, err)

	s.Dismiss(ctx)
	state := s.Snapshot()
	assert.Equal(t, enums.CheckoutStepCart, state.Step)
	assert.Empty(t, state.OrderNumber)
	assert.Equal(t, CustomerDetails{}, state.Details)
	assert.True(t, c.IsEmpty())
}

func TestLateResponseIsDiscardedAfterClose(t *testing.T) {
	c := filledCart(t)
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		placed: commerce.PlacedOrder{OrderNumber: "ORD-9"},
		placeHook: func() {
			close(started)
			<-release
		},
	}
	s := detailsSession(t, c, api, "CASH")

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := s.PlaceOrder(context.Background())
		done <- result{outcome: outcome, err: err}
	}()

	<-started
	assert.True(t, s.Snapshot().Submitting)
	s.Close()
	close(release)
	res := <-done

	require.ErrorIs(t, res.err, ErrSessionClosed)
	assert.Equal(t, 5, c.Count())
	assert.NotEqual(t, enums.CheckoutStepConfirmation, s.Snapshot().Step)
	assert.ErrorIs(t, s.Proceed(), ErrSessionClosed)
}

func TestCallbackURLEscapesParts(t *testing.T) {
	build := CallbackURL("https://shop.example.ng")
	assert.Equal(t, "https://shop.example.ng/stores/mama%20put?order=ORD+1%2F2", build("mama put", "ORD 1/2"))
	assert.Equal(t, "/stores/acme?order=ORD-1", CallbackURL("")("acme", "ORD-1"))
}
