package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/currency"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type orderResponse struct {
	commerce.Order
	TotalLabel string `json:"totalLabel"`
}

type paymentProofRequest struct {
	ProofURL string `json:"proofUrl" validate:"required,url,max=2048"`
	Note     string `json:"note" validate:"max=500"`
}

func orderNumberParam(r *http.Request) (string, error) {
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" || len(orderNumber) > 64 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid order number")
	}
	return orderNumber, nil
}

// OrderTrack shows the authoritative state of a placed order.
func OrderTrack(tracker OrderTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := tracker.GetOrder(r.Context(), middleware.StoreSlugFromContext(r.Context()), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponse{Order: order, TotalLabel: currency.Format(order.Total)})
	}
}

// OrderPaymentProof forwards bank-transfer evidence for manual review.
func OrderPaymentProof(tracker OrderTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderNumber, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload paymentProofRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		proof := commerce.PaymentProof{
			ProofURL: strings.TrimSpace(payload.ProofURL),
			Note:     validators.SanitizeString(payload.Note, 500),
		}
		if err := tracker.SubmitPaymentProof(r.Context(), middleware.StoreSlugFromContext(r.Context()), orderNumber, proof); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "submitted", "orderNumber": orderNumber})
	}
}
