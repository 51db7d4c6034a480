package storefront

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

type stubCatalog struct {
	store       commerce.Store
	storeErr    error
	products    commerce.ProductPage
	productsErr error
	product     commerce.Product
	stores      commerce.StorePage

	lastQuery commerce.ProductQuery
	calls     atomic.Int32
}

func (s *stubCatalog) ListStores(context.Context, commerce.StoreQuery) (commerce.StorePage, error) {
	s.calls.Add(1)
	return s.stores, nil
}

func (s *stubCatalog) GetStore(context.Context, string) (commerce.Store, error) {
	s.calls.Add(1)
	return s.store, s.storeErr
}

func (s *stubCatalog) ListProducts(_ context.Context, _ string, q commerce.ProductQuery) (commerce.ProductPage, error) {
	s.calls.Add(1)
	s.lastQuery = q
	return s.products, s.productsErr
}

func (s *stubCatalog) GetProduct(context.Context, string, string) (commerce.Product, error) {
	s.calls.Add(1)
	return s.product, nil
}

func TestPageLoadsStoreAndProducts(t *testing.T) {
	catalog := &stubCatalog{
		store: commerce.Store{
			Slug: "mama-put", IsActive: true, AcceptOrders: true, AcceptCash: true,
			MinimumOrderAmount: decimal.NewFromInt(2500), DeliveryEnabled: true, DeliveryFee: decimal.NewFromInt(1500),
		},
		products: commerce.ProductPage{
			Products: []commerce.Product{
				{ID: "p1", Price: decimal.NewFromInt(1200), Category: "Rice", IsActive: true, InStock: true},
				{ID: "p2", Price: decimal.NewFromInt(800), Category: "Swallow", IsActive: true},
				{ID: "p3", Price: decimal.NewFromInt(800), Category: "Rice", IsActive: true, InStock: true},
			},
			Meta: pagination.Meta{Page: 1, PageSize: 20, Total: 3, TotalPages: 1},
		},
	}
	svc, err := NewService(catalog, nil)
	require.NoError(t, err)

	page, err := svc.Page(context.Background(), "mama-put", commerce.ProductQuery{})
	require.NoError(t, err)

	assert.Equal(t, int32(2), catalog.calls.Load())
	assert.Equal(t, pagination.DefaultPageSize, catalog.lastQuery.Page.PageSize)
	assert.True(t, page.Store.AcceptingOrders)
	assert.Equal(t, []enums.PaymentMethod{enums.PaymentMethodCash}, page.Store.AcceptedPayments)
	assert.Equal(t, "₦2,500", page.Store.MinimumOrderLabel)
	assert.Equal(t, "₦1,500", page.Store.DeliveryFeeLabel)
	assert.Equal(t, []string{"Rice", "Swallow"}, page.Categories)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "₦1,200", page.Products[0].PriceLabel)
	assert.False(t, page.Products[1].Available)
}

func TestPageFailsWhenEitherLoadFails(t *testing.T) {
	catalog := &stubCatalog{storeErr: pkgerrors.New(pkgerrors.CodeNotFound, "store not found")}
	svc, err := NewService(catalog, nil)
	require.NoError(t, err)

	_, err = svc.Page(context.Background(), "ghost", commerce.ProductQuery{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestProductsPreferReportedCategories(t *testing.T) {
	catalog := &stubCatalog{products: commerce.ProductPage{
		Products:   []commerce.Product{{ID: "p1", Category: "Rice"}},
		Categories: []string{"Drinks", "Rice"},
	}}
	svc, err := NewService(catalog, nil)
	require.NoError(t, err)

	page, err := svc.Products(context.Background(), "mama-put", commerce.ProductQuery{Category: "Rice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Drinks", "Rice"}, page.Categories)
	assert.Equal(t, "Rice", catalog.lastQuery.Category)
}

func TestProductRejectsUnavailable(t *testing.T) {
	stock := 1
	catalog := &stubCatalog{product: commerce.Product{ID: "p1", IsActive: true, InStock: true, TrackInventory: true, StockQuantity: &stock}}
	svc, err := NewService(catalog, nil)
	require.NoError(t, err)

	_, err = svc.Product(context.Background(), "mama-put", "p1", 1)
	require.NoError(t, err)

	_, err = svc.Product(context.Background(), "mama-put", "p1", 2)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Product(context.Background(), "mama-put", " ", 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestDirectoryFormatsStores(t *testing.T) {
	catalog := &stubCatalog{stores: commerce.StorePage{
		Stores: []commerce.Store{{Slug: "a", IsActive: true}, {Slug: "b", IsActive: true, AcceptOrders: true}},
		Meta:   pagination.Meta{Page: 1, PageSize: 20, Total: 2, TotalPages: 1},
	}}
	svc, err := NewService(catalog, nil)
	require.NoError(t, err)

	dir, err := svc.Directory(context.Background(), commerce.StoreQuery{Search: "a"})
	require.NoError(t, err)
	require.Len(t, dir.Stores, 2)
	assert.False(t, dir.Stores[0].AcceptingOrders)
	assert.True(t, dir.Stores[1].AcceptingOrders)
	assert.Empty(t, dir.Stores[0].MinimumOrderLabel)
}
