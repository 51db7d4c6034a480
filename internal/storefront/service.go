// Package storefront loads the read-only display data of the store directory and store pages.
package storefront

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/currency"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// Catalog is the read side of the commerce API.
type Catalog interface {
	ListStores(ctx context.Context, q commerce.StoreQuery) (commerce.StorePage, error)
	GetStore(ctx context.Context, slug string) (commerce.Store, error)
	ListProducts(ctx context.Context, slug string, q commerce.ProductQuery) (commerce.ProductPage, error)
	GetProduct(ctx context.Context, slug, productID string) (commerce.Product, error)
}

// StoreView is a store with its amounts formatted for display.
type StoreView struct {
	commerce.Store
	AcceptedPayments  []enums.PaymentMethod `json:"acceptedPayments"`
	MinimumOrderLabel string                `json:"minimumOrderLabel,omitempty"`
	DeliveryFeeLabel  string                `json:"deliveryFeeLabel,omitempty"`
	AcceptingOrders   bool                  `json:"acceptingOrders"`
}

// ProductView is a catalogue entry with its price formatted for display.
type ProductView struct {
	commerce.Product
	PriceLabel string `json:"priceLabel"`
	Available  bool   `json:"available"`
}

// Page is everything the store page renders on first load.
type Page struct {
	Store      StoreView       `json:"store"`
	Products   []ProductView   `json:"products"`
	Categories []string        `json:"categories"`
	Meta       pagination.Meta `json:"meta"`
}

// Directory is one page of the store listing.
type Directory struct {
	Stores []StoreView     `json:"stores"`
	Meta   pagination.Meta `json:"meta"`
}

// Service serves store and product display data.
type Service struct {
	catalog Catalog
	logg    *logger.Logger
}

// NewService builds the storefront service.
func NewService(catalog Catalog, logg *logger.Logger) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{catalog: catalog, logg: logg}, nil
}

// Directory lists stores.
func (s *Service) Directory(ctx context.Context, q commerce.StoreQuery) (Directory, error) {
	q.Page = q.Page.Normalize()
	page, err := s.catalog.ListStores(ctx, q)
	if err != nil {
		return Directory{}, err
	}
	out := Directory{Stores: make([]StoreView, 0, len(page.Stores)), Meta: page.Meta}
	for _, store := range page.Stores {
		out.Stores = append(out.Stores, NewStoreView(store))
	}
	return out, nil
}

// Store returns the configuration of one store.
func (s *Service) Store(ctx context.Context, slug string) (commerce.Store, error) {
	return s.catalog.GetStore(ctx, slug)
}

// Page loads the store and the first product page concurrently.
func (s *Service) Page(ctx context.Context, slug string, q commerce.ProductQuery) (Page, error) {
	q.Page = q.Page.Normalize()
	var (
		store    commerce.Store
		products commerce.ProductPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		store, err = s.catalog.GetStore(gctx, slug)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.catalog.ListProducts(gctx, slug, q)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "storefront.page.load_failed")
		return Page{}, err
	}
	return Page{
		Store:      NewStoreView(store),
		Products:   productViews(products.Products),
		Categories: categoriesOf(products),
		Meta:       products.Meta,
	}, nil
}

// Products lists one catalogue page.
func (s *Service) Products(ctx context.Context, slug string, q commerce.ProductQuery) (Page, error) {
	q.Page = q.Page.Normalize()
	products, err := s.catalog.ListProducts(ctx, slug, q)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Products:   productViews(products.Products),
		Categories: categoriesOf(products),
		Meta:       products.Meta,
	}, nil
}

// Product returns a single product that can be sold in quantity, or a validation error.
func (s *Service) Product(ctx context.Context, slug, productID string, quantity int) (commerce.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return commerce.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.catalog.GetProduct(ctx, slug, productID)
	if err != nil {
		return commerce.Product{}, err
	}
	if !product.Available(quantity) {
		return commerce.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product is out of stock").
			WithDetails(map[string]any{"product_id": productID, "quantity": quantity})
	}
	return product, nil
}

// NewStoreView formats a store for display.
func NewStoreView(store commerce.Store) StoreView {
	view := StoreView{
		Store:            store,
		AcceptedPayments: store.PaymentMethods(),
		AcceptingOrders:  store.CanTakeOrders(),
	}
	if store.MinimumOrderAmount.IsPositive() {
		view.MinimumOrderLabel = currency.Format(store.MinimumOrderAmount)
	}
	if store.DeliveryEnabled {
		view.DeliveryFeeLabel = currency.Format(store.DeliveryFee)
	}
	return view
}

func productViews(products []commerce.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{
			Product:    p,
			PriceLabel: currency.Format(p.Price),
			Available:  p.Available(1),
		})
	}
	return out
}

// categoriesOf prefers the categories reported by the API and otherwise derives them from
// the products on the page.
func categoriesOf(page commerce.ProductPage) []string {
	if len(page.Categories) > 0 {
		return page.Categories
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range page.Products {
		name := strings.TrimSpace(p.Category)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
