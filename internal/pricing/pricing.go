// Package pricing derives advisory cart totals from line snapshots and store settings.
//
// Every figure is computed in kobo. The result is display data: the commerce API
// recomputes prices when it accepts an order, and Quote.Authoritative is always false.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/currency"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// DefaultPlatformFeePercent applies when neither the store nor the caller sets one.
var DefaultPlatformFeePercent = decimal.NewFromInt(3)

var hundred = decimal.NewFromInt(100)

// Input is everything a quote depends on.
type Input struct {
	Items                     []cart.LineItem
	Store                     commerce.Store
	DeliveryAddress           string
	PaymentMethod             enums.PaymentMethod
	// DefaultPlatformFeePercent is the operator default; nil means unset and an explicit zero is honoured.
	DefaultPlatformFeePercent *decimal.Decimal
}

// Quote is the advisory breakdown shown before an order is placed.
type Quote struct {
	Subtotal    currency.Minor `json:"subtotal"`
	Tax         currency.Minor `json:"tax"`
	DeliveryFee currency.Minor `json:"deliveryFee"`
	GrandTotal  currency.Minor `json:"grandTotal"`

	Fulfillment           enums.FulfillmentType `json:"fulfillmentType"`
	MinimumOrder          currency.Minor        `json:"minimumOrder"`
	MinimumOrderViolation bool                  `json:"minimumOrderViolation"`

	// ProcessingFeePercent is informational; the fee is absorbed at settlement and
	// never added to GrandTotal.
	ProcessingFeePercent  decimal.Decimal `json:"processingFeePercent"`
	ProcessingFeeIncluded bool            `json:"processingFeeIncluded"`

	Authoritative bool   `json:"authoritative"`
	Currency      string `json:"currency"`
}

// Calculate prices the cart lines against the store configuration.
func Calculate(in Input) Quote {
	var subtotal, tax currency.Minor
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			continue
		}
		line := item.LineTotal()
		subtotal += line
		tax += lineTax(line, item.Product)
	}

	fulfillment := enums.FulfillmentFor(in.DeliveryAddress)
	var delivery currency.Minor
	if fulfillment == enums.FulfillmentDelivery && in.Store.DeliveryEnabled {
		delivery = currency.ToMinor(in.Store.DeliveryFee)
	}

	minimum := currency.ToMinor(in.Store.MinimumOrderAmount)

	q := Quote{
		Subtotal:              subtotal,
		Tax:                   tax,
		DeliveryFee:           delivery,
		GrandTotal:            subtotal + tax + delivery,
		Fulfillment:           fulfillment,
		MinimumOrder:          minimum,
		MinimumOrderViolation: minimum > 0 && subtotal+tax < minimum,
		ProcessingFeePercent:  platformFee(in),
		ProcessingFeeIncluded: in.PaymentMethod == enums.PaymentMethodOnline,
		Authoritative:         false,
		Currency:              currency.Code.String(),
	}
	return q
}

// lineTax is line × rate / 100, rounded half away from zero to the kobo.
func lineTax(line currency.Minor, product cart.Snapshot) currency.Minor {
	if !product.IsTaxable || !product.TaxRate.IsPositive() {
		return 0
	}
	amount := decimal.NewFromInt(int64(line)).Mul(product.TaxRate).Div(hundred)
	return currency.Minor(amount.Round(0).IntPart())
}

func platformFee(in Input) decimal.Decimal {
	if in.Store.PlatformFeePercent != nil && !in.Store.PlatformFeePercent.IsNegative() {
		return *in.Store.PlatformFeePercent
	}
	if in.DefaultPlatformFeePercent != nil && !in.DefaultPlatformFeePercent.IsNegative() {
		return *in.DefaultPlatformFeePercent
	}
	return DefaultPlatformFeePercent
}

// Amounts renders a quote in naira for display.
type Amounts struct {
	Subtotal     string `json:"subtotal"`
	Tax          string `json:"tax"`
	DeliveryFee  string `json:"deliveryFee"`
	GrandTotal   string `json:"grandTotal"`
	MinimumOrder string `json:"minimumOrder,omitempty"`
}

// Display formats the quote amounts with the currency symbol.
func (q Quote) Display() Amounts {
	out := Amounts{
		Subtotal:    q.Subtotal.String(),
		Tax:         q.Tax.String(),
		DeliveryFee: q.DeliveryFee.String(),
		GrandTotal:  q.GrandTotal.String(),
	}
	if q.MinimumOrder > 0 {
		out.MinimumOrder = q.MinimumOrder.String()
	}
	return out
}

// Shortfall is how much more the shopper must add to reach the minimum order.
func (q Quote) Shortfall() currency.Minor {
	if !q.MinimumOrderViolation {
		return 0
	}
	return q.MinimumOrder - (q.Subtotal + q.Tax)
}
