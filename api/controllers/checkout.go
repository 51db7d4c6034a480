package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/pricing"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// CheckoutOptions configures the checkout endpoints.
type CheckoutOptions struct {
	API                       checkout.OrderAPI
	Metrics                   *metrics.CheckoutMetrics
	CallbackURL               checkout.CallbackURLFunc
	MinimumOrderPolicy        string
	DefaultPlatformFeePercent *decimal.Decimal
}

type quoteRequest struct {
	Address       string              `json:"address" validate:"max=500"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=ONLINE BANK_TRANSFER CASH"`
}

type quoteResponse struct {
	Quote            pricing.Quote         `json:"quote"`
	Display          pricing.Amounts       `json:"display"`
	Shortfall        string                `json:"shortfall,omitempty"`
	AcceptedPayments []enums.PaymentMethod `json:"acceptedPayments"`
}

type checkoutRequest struct {
	Customer      checkout.CustomerDetails `json:"customer" validate:"-"`
	PaymentMethod enums.PaymentMethod      `json:"paymentMethod"`
}

// CheckoutQuote prices the cart for a prospective address and payment method.
func CheckoutQuote(svc StorefrontService, carts CartOpener, opts CheckoutOptions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || carts == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		slug := middleware.StoreSlugFromContext(ctx)
		store, err := svc.Store(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		c, err := carts.Open(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		quote := pricing.Calculate(pricing.Input{
			Items:                     c.Items(),
			Store:                     store,
			DeliveryAddress:           payload.Address,
			PaymentMethod:             payload.PaymentMethod,
			DefaultPlatformFeePercent: opts.DefaultPlatformFeePercent,
		})
		resp := quoteResponse{
			Quote:            quote,
			Display:          quote.Display(),
			AcceptedPayments: store.PaymentMethods(),
		}
		if s := quote.Shortfall(); s > 0 {
			resp.Shortfall = s.String()
		}
		responses.WriteSuccess(w, resp)
	}
}

// CheckoutSubmit runs a checkout session from the cart step to order placement in one
// request. Invalid details come back as VALIDATION_ERROR with per-field messages.
func CheckoutSubmit(svc StorefrontService, carts CartOpener, opts CheckoutOptions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || carts == nil || opts.API == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		slug := middleware.StoreSlugFromContext(ctx)
		store, err := svc.Store(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		c, err := carts.Open(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := checkout.NewSession(checkout.SessionParams{
			Cart:                      c,
			Store:                     store,
			API:                       opts.API,
			Logger:                    logg,
			Metrics:                   opts.Metrics,
			CallbackURL:               opts.CallbackURL,
			MinimumOrderPolicy:        opts.MinimumOrderPolicy,
			DefaultPlatformFeePercent: opts.DefaultPlatformFeePercent,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout unavailable"))
			return
		}
		defer session.Close()

		if err := session.Proceed(); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session.SetDetails(payload.Customer)
		session.SelectPayment(payload.PaymentMethod)
		if errs := session.Validate(); len(errs) > 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checkout details are invalid").WithDetails(errs))
			return
		}

		outcome, err := session.PlaceOrder(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, outcome)
	}
}
