package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

const maxSearchLen = 100

type storePageResponse struct {
	storefront.Page
	CartCount    int                       `json:"cartCount"`
	Payment      *checkout.ReconcileResult `json:"payment,omitempty"`
	PaymentError *types.APIError           `json:"paymentError,omitempty"`
}

// StoreDirectory lists stores.
func StoreDirectory(svc StorefrontService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront service unavailable"))
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dir, err := svc.Directory(r.Context(), commerce.StoreQuery{
			Page:   page,
			Search: validators.QueryText(r, "search", maxSearchLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dir)
	}
}

// StorePage loads a store with its first product page. A gateway return carrying
// `reference` and `order` query parameters is reconciled before the page is loaded;
// reconciliation failures are reported in the body and never fail the page.
func StorePage(svc StorefrontService, carts CartOpener, recon PaymentReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil || recon == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront service unavailable"))
			return
		}
		ctx := r.Context()
		slug := middleware.StoreSlugFromContext(ctx)
		query, err := productQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		c, err := carts.Open(ctx, slug)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var resp storePageResponse
		reference := validators.QueryText(r, "reference", 128)
		order := validators.QueryText(r, "order", 64)
		if reference != "" && order != "" {
			result, err := recon.Reconcile(ctx, checkout.ReconcileParams{Slug: slug, Order: order, Reference: reference, Cart: c})
			if err != nil {
				resp.PaymentError = publicError(err)
			} else {
				resp.Payment = &result
			}
		}

		page, err := svc.Page(ctx, slug, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp.Page = page
		resp.CartCount = c.Count()
		responses.WriteSuccess(w, resp)
	}
}

// StoreProducts lists a page of the store catalogue.
func StoreProducts(svc StorefrontService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront service unavailable"))
			return
		}
		query, err := productQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Products(r.Context(), middleware.StoreSlugFromContext(r.Context()), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func productQuery(r *http.Request) (commerce.ProductQuery, error) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		return commerce.ProductQuery{}, err
	}
	return commerce.ProductQuery{
		Page:     page,
		Category: validators.QueryText(r, "category", maxSearchLen),
		Search:   validators.QueryText(r, "search", maxSearchLen),
	}, nil
}

// publicError renders err the way WriteError would, for embedding in a success body.
func publicError(err error) *types.APIError {
	apiErr := responses.APIError(pkgerrors.PublicFor(err))
	return &apiErr
}
