package cart

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// Repository opens carts by store slug within one storage partition.
type Repository struct {
	storage storage.Store
	logg    *logger.Logger
}

// NewRepository binds carts to store.
func NewRepository(store storage.Store, logg *logger.Logger) *Repository {
	return &Repository{storage: store, logg: logg}
}

// Open loads the cart of the store identified by slug.
func (r *Repository) Open(ctx context.Context, slug string) (*Cart, error) {
	if r == nil {
		return nil, ErrContextUnavailable
	}
	return Open(ctx, &Binding{Slug: slug, Storage: r.storage}, r.logg)
}
