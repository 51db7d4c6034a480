package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const maxLineQuantity = 999

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=999"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=999"`
}

type cartLine struct {
	cart.LineItem
	UnitPriceLabel string `json:"unitPriceLabel"`
	LineTotal      string `json:"lineTotal"`
}

type cartResponse struct {
	StoreSlug string          `json:"storeSlug"`
	Items     []cartLine      `json:"items"`
	Count     int             `json:"count"`
	Quote     pricing.Quote   `json:"quote"`
	Display   pricing.Amounts `json:"display"`
}

func newCartResponse(c *cart.Cart, store commerce.Store, defaultFee *decimal.Decimal) cartResponse {
	items := c.Items()
	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, cartLine{
			LineItem:       item,
			UnitPriceLabel: item.Product.UnitPrice().String(),
			LineTotal:      item.LineTotal().String(),
		})
	}
	quote := pricing.Calculate(pricing.Input{Items: items, Store: store, DefaultPlatformFeePercent: defaultFee})
	return cartResponse{
		StoreSlug: c.Slug(),
		Items:     lines,
		Count:     c.Count(),
		Quote:     quote,
		Display:   quote.Display(),
	}
}

// CartHandlers serves the shopper's per-store cart.
type CartHandlers struct {
	svc        StorefrontService
	carts      CartOpener
	defaultFee *decimal.Decimal
	logg       *logger.Logger
}

// NewCartHandlers wires the cart endpoints.
func NewCartHandlers(svc StorefrontService, carts CartOpener, defaultFee *decimal.Decimal, logg *logger.Logger) *CartHandlers {
	return &CartHandlers{svc: svc, carts: carts, defaultFee: defaultFee, logg: logg}
}

// open loads the store configuration and the shopper's cart for the request's store.
func (h *CartHandlers) open(ctx context.Context) (commerce.Store, *cart.Cart, error) {
	if h == nil || h.svc == nil || h.carts == nil {
		return commerce.Store{}, nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
	}
	slug := middleware.StoreSlugFromContext(ctx)
	store, err := h.svc.Store(ctx, slug)
	if err != nil {
		return commerce.Store{}, nil, err
	}
	c, err := h.carts.Open(ctx, slug)
	if err != nil {
		return commerce.Store{}, nil, err
	}
	return store, c, nil
}

// Fetch returns the cart with its advisory quote.
func (h *CartHandlers) Fetch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, c, err := h.open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c, store, h.defaultFee))
	}
}

// Count returns the cart badge count without contacting the commerce API.
func (h *CartHandlers) Count() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil || h.carts == nil {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		c, err := h.carts.Open(r.Context(), middleware.StoreSlugFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"count": c.Count()})
	}
}

// Add puts a product in the cart. The snapshot is fetched from the commerce API so
// clients cannot supply their own prices.
func (h *CartHandlers) Add() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		store, c, err := h.open(ctx)
		if err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		if !store.CanTakeOrders() {
			responses.WriteError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "store is not accepting orders"))
			return
		}

		productID := strings.TrimSpace(payload.ProductID)
		wanted := payload.Quantity
		if existing, ok := c.Item(productID); ok {
			wanted += existing.Quantity
		}
		if wanted > maxLineQuantity {
			responses.WriteError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity limit exceeded").
				WithDetails(map[string]string{"quantity": "must be at most 999"}))
			return
		}
		product, err := h.svc.Product(ctx, store.Slug, productID, wanted)
		if err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}

		c.Add(ctx, productID, cart.SnapshotFrom(product), payload.Quantity)
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(c, store, h.defaultFee))
	}
}

// Update sets the quantity of a line; zero removes it.
func (h *CartHandlers) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		store, c, err := h.open(ctx)
		if err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		existing, ok := c.Item(productID)
		if !ok {
			responses.WriteError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart"))
			return
		}
		if payload.Quantity > existing.Quantity {
			if _, err := h.svc.Product(ctx, store.Slug, productID, payload.Quantity); err != nil {
				responses.WriteError(ctx, h.logg, w, err)
				return
			}
		}
		c.UpdateQuantity(ctx, productID, payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(c, store, h.defaultFee))
	}
}

// Remove deletes a line from the cart.
func (h *CartHandlers) Remove() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, c, err := h.open(ctx)
		if err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		c.Remove(ctx, chi.URLParam(r, "productId"))
		responses.WriteSuccess(w, newCartResponse(c, store, h.defaultFee))
	}
}

// Clear empties the cart.
func (h *CartHandlers) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, c, err := h.open(ctx)
		if err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		c.Clear(ctx)
		responses.WriteSuccess(w, newCartResponse(c, store, h.defaultFee))
	}
}
