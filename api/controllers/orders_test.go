package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/pkg/logger"
)

func TestOrderTrack(t *testing.T) {
	h := newHarness(t)
	handler := OrderTrack(h.api, logger.Nop())

	rec := serve(handler, newRequest(http.MethodGet, "/orders/ORD-1", "", "shopper-1", map[string]string{"orderNumber": "ORD-1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		OrderNumber string `json:"orderNumber"`
		TotalLabel  string `json:"totalLabel"`
	}
	decodeData(t, rec, &body)
	assert.Equal(t, "ORD-1", body.OrderNumber)
	assert.Equal(t, "₦3,650", body.TotalLabel)

	rec = serve(handler, newRequest(http.MethodGet, "/orders/ORD-404", "", "shopper-1", map[string]string{"orderNumber": "ORD-404"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderPaymentProof(t *testing.T) {
	h := newHarness(t)
	handler := OrderPaymentProof(h.api, logger.Nop())
	params := map[string]string{"orderNumber": "ORD-1"}

	rec := serve(handler, newRequest(http.MethodPost, "/orders/ORD-1/payment-proof", `{"proofUrl":"https://files.example.ng/receipt.png","note":"  paid from GTBank  "}`, "shopper-1", params))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, h.api.proofs, 1)
	assert.Equal(t, "paid from GTBank", h.api.proofs[0].Note)

	rec = serve(handler, newRequest(http.MethodPost, "/orders/ORD-1/payment-proof", `{"proofUrl":"not a url"}`, "shopper-1", params))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
