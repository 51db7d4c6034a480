package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const validCustomer = `{"name":"Ada Obi","phone":"0803 123 4567","email":"ada@example.com"}`

type outcomeBody struct {
	Step        enums.CheckoutStep `json:"step"`
	OrderNumber string             `json:"orderNumber"`
	RedirectURL string             `json:"redirectUrl"`
}

func (h *harness) submit(t *testing.T, shopperID, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := CheckoutSubmit(h.svc, h.carts, h.checkout, logger.Nop())
	return serve(handler, newRequest(http.MethodPost, "/checkout", body, shopperID, nil))
}

func (h *harness) count(t *testing.T, shopperID string) int {
	t.Helper()
	rec := serve(h.cartAPI.Count(), newRequest(http.MethodGet, "/cart/count", "", shopperID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	decodeData(t, rec, &body)
	return body["count"]
}

func TestCheckoutCashClearsCart(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.add(t, "shopper-1", "x", 2).Code)

	rec := h.submit(t, "shopper-1", `{"customer":`+validCustomer+`,"paymentMethod":"CASH"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body outcomeBody
	decodeData(t, rec, &body)
	assert.Equal(t, enums.CheckoutStepConfirmation, body.Step)
	assert.Equal(t, "ORD-1", body.OrderNumber)
	assert.Empty(t, body.RedirectURL)
	assert.Equal(t, 0, h.count(t, "shopper-1"))
	require.Len(t, h.api.orders, 1)
	assert.Equal(t, "08031234567", h.api.orders[0].CustomerPhone)
}

func TestCheckoutOnlineRedirectsAndKeepsCart(t *testing.T) {
	h := newHarness(t)
	h.api.authURL = "https://checkout.gateway.test/abc"
	require.Equal(t, http.StatusCreated, h.add(t, "shopper-1", "x", 2).Code)

	rec := h.submit(t, "shopper-1", `{"customer":`+validCustomer+`,"paymentMethod":"ONLINE"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body outcomeBody
	decodeData(t, rec, &body)
	assert.Equal(t, enums.CheckoutStepOnlineRedirect, body.Step)
	assert.Equal(t, "https://checkout.gateway.test/abc", body.RedirectURL)
	assert.Equal(t, 2, h.count(t, "shopper-1"))
}

func TestCheckoutReportsFieldErrors(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.add(t, "shopper-1", "x", 1).Code)

	rec := h.submit(t, "shopper-1", `{"customer":{"name":"A","phone":"123","email":"nope"},"paymentMethod":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"name", "phone", "email", "payment_method"} {
		assert.Contains(t, details, field)
	}
	assert.Empty(t, h.api.orders)
}

func TestCheckoutEmptyCartIsStateConflict(t *testing.T) {
	h := newHarness(t)
	rec := h.submit(t, "shopper-1", `{"customer":`+validCustomer+`,"paymentMethod":"CASH"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckoutQuoteIncludesDeliveryAndShortfall(t *testing.T) {
	h := newHarness(t)
	h.api.store.DeliveryEnabled = true
	h.api.store.DeliveryFee = decimalFromInt(1000)
	h.api.store.MinimumOrderAmount = decimalFromInt(5000)
	require.Equal(t, http.StatusCreated, h.add(t, "shopper-1", "x", 2).Code)
	require.Equal(t, http.StatusCreated, h.add(t, "shopper-1", "y", 3).Code)

	handler := CheckoutQuote(h.svc, h.carts, h.checkout, logger.Nop())
	rec := serve(handler, newRequest(http.MethodPost, "/checkout/quote", `{"address":"12 Admiralty Way, Lekki","paymentMethod":"ONLINE"}`, "shopper-1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Quote struct {
			DeliveryFee           int64  `json:"deliveryFee"`
			GrandTotal            int64  `json:"grandTotal"`
			FulfillmentType       string `json:"fulfillmentType"`
			MinimumOrderViolation bool   `json:"minimumOrderViolation"`
			ProcessingFeeIncluded bool   `json:"processingFeeIncluded"`
		} `json:"quote"`
		Shortfall string `json:"shortfall"`
	}
	decodeData(t, rec, &body)
	assert.Equal(t, int64(100000), body.Quote.DeliveryFee)
	assert.Equal(t, int64(465000), body.Quote.GrandTotal)
	assert.Equal(t, "DELIVERY", body.Quote.FulfillmentType)
	assert.True(t, body.Quote.MinimumOrderViolation)
	assert.True(t, body.Quote.ProcessingFeeIncluded)
	assert.Equal(t, "₦1,350", body.Shortfall)
}
