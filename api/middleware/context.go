package middleware

import "context"

type contextKey string

const (
	ctxShopperID contextKey = "shopper_id"
	ctxStoreSlug contextKey = "store_slug"
)

// ShopperIDFromContext returns the anonymous shopper bound by the Shopper middleware.
func ShopperIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxShopperID).(string); ok {
		return v
	}
	return ""
}

// StoreSlugFromContext returns the store slug bound by the StoreSlug middleware.
func StoreSlugFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStoreSlug).(string); ok {
		return v
	}
	return ""
}

// WithShopperID injects the shopper identifier into the context.
func WithShopperID(ctx context.Context, shopperID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShopperID, shopperID)
}

// WithStoreSlug injects the store slug into the context for downstream handlers.
func WithStoreSlug(ctx context.Context, slug string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreSlug, slug)
}
