package controllers

import (
	"context"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// StorefrontService is the display-data surface used by the handlers.
type StorefrontService interface {
	Directory(ctx context.Context, q commerce.StoreQuery) (storefront.Directory, error)
	Store(ctx context.Context, slug string) (commerce.Store, error)
	Page(ctx context.Context, slug string, q commerce.ProductQuery) (storefront.Page, error)
	Products(ctx context.Context, slug string, q commerce.ProductQuery) (storefront.Page, error)
	Product(ctx context.Context, slug, productID string, quantity int) (commerce.Product, error)
}

// CartOpener opens the calling shopper's cart for a store.
type CartOpener interface {
	Open(ctx context.Context, slug string) (*cart.Cart, error)
}

// PaymentReconciler handles gateway returns.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, p checkout.ReconcileParams) (checkout.ReconcileResult, error)
}

// OrderTracker reads placed orders and forwards transfer evidence.
type OrderTracker interface {
	GetOrder(ctx context.Context, slug, orderNumber string) (commerce.Order, error)
	SubmitPaymentProof(ctx context.Context, slug, orderNumber string, proof commerce.PaymentProof) error
}

// ShopperCarts opens carts inside the storage partition of the shopper on the request.
type ShopperCarts struct {
	store storage.Store
	logg  *logger.Logger
}

// NewShopperCarts builds a CartOpener over the shared storage backend.
func NewShopperCarts(store storage.Store, logg *logger.Logger) *ShopperCarts {
	return &ShopperCarts{store: store, logg: logg}
}

// Open implements CartOpener.
func (s *ShopperCarts) Open(ctx context.Context, slug string) (*cart.Cart, error) {
	if s == nil || s.store == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, cart.ErrContextUnavailable, "cart storage unavailable")
	}
	shopperID := middleware.ShopperIDFromContext(ctx)
	if shopperID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, cart.ErrContextUnavailable, "shopper session missing")
	}
	return cart.NewRepository(storage.ShopperPartition(s.store, shopperID), s.logg).Open(ctx, slug)
}
