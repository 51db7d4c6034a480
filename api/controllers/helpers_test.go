package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/idempotency"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
	"github.com/angelmondragon/storefront/pkg/types"
)

const testSlug = "mama-put"

// fakeCommerce stands in for the remote commerce API.
type fakeCommerce struct {
	mu sync.Mutex

	store    commerce.Store
	products map[string]commerce.Product

	orderNumber string
	authURL     string
	verifyErr   error
	payStatus   enums.PaymentStatus
	proofs      []commerce.PaymentProof
	orders      []commerce.OrderRequest
	verifyCalls int
}

func newFakeCommerce() *fakeCommerce {
	stock := 2
	return &fakeCommerce{
		store: commerce.Store{
			Slug:                testSlug,
			Name:                "Mama Put",
			IsActive:            true,
			AcceptOrders:        true,
			AcceptOnlinePayment: true,
			AcceptCash:          true,
		},
		products: map[string]commerce.Product{
			"x": {ID: "x", Name: "Jollof", Price: decimal.NewFromInt(1000), IsTaxable: true, TaxRate: decimal.RequireFromString("7.5"), InStock: true, IsActive: true},
			"y": {ID: "y", Name: "Dodo", Price: decimal.NewFromInt(500), InStock: true, IsActive: true},
			"z": {ID: "z", Name: "Suya", Price: decimal.NewFromInt(2000), InStock: true, IsActive: true, TrackInventory: true, StockQuantity: &stock},
		},
		orderNumber: "ORD-1",
		payStatus:   enums.PaymentStatusPaid,
	}
}

func (f *fakeCommerce) ListStores(context.Context, commerce.StoreQuery) (commerce.StorePage, error) {
	return commerce.StorePage{Stores: []commerce.Store{f.store}}, nil
}

func (f *fakeCommerce) GetStore(_ context.Context, slug string) (commerce.Store, error) {
	if slug != f.store.Slug {
		return commerce.Store{}, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return f.store, nil
}

func (f *fakeCommerce) ListProducts(context.Context, string, commerce.ProductQuery) (commerce.ProductPage, error) {
	out := make([]commerce.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return commerce.ProductPage{Products: out}, nil
}

func (f *fakeCommerce) GetProduct(_ context.Context, _ string, id string) (commerce.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return commerce.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func (f *fakeCommerce) PlaceOrder(_ context.Context, _ string, req commerce.OrderRequest) (commerce.PlacedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	return commerce.PlacedOrder{OrderNumber: f.orderNumber}, nil
}

func (f *fakeCommerce) InitializePayment(context.Context, string, commerce.PaymentInitRequest) (commerce.PaymentSession, error) {
	return commerce.PaymentSession{AuthorizationURL: f.authURL}, nil
}

func (f *fakeCommerce) VerifyPayment(_ context.Context, _, orderNumber, reference string) (commerce.PaymentVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return commerce.PaymentVerification{}, f.verifyErr
	}
	return commerce.PaymentVerification{OrderNumber: orderNumber, Reference: reference, PaymentStatus: f.payStatus}, nil
}

func (f *fakeCommerce) GetOrder(_ context.Context, _ string, orderNumber string) (commerce.Order, error) {
	if orderNumber != f.orderNumber {
		return commerce.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return commerce.Order{OrderNumber: orderNumber, PaymentStatus: enums.PaymentStatusPending, Total: decimal.NewFromInt(3650)}, nil
}

func (f *fakeCommerce) SubmitPaymentProof(_ context.Context, _, _ string, proof commerce.PaymentProof) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proofs = append(f.proofs, proof)
	return nil
}

type harness struct {
	api      *fakeCommerce
	svc      *storefront.Service
	carts    *ShopperCarts
	recon    *checkout.Reconciler
	cartAPI  *CartHandlers
	checkout CheckoutOptions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeCommerce()
	svc, err := storefront.NewService(api, logger.Nop())
	require.NoError(t, err)
	store := memory.New(0)
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	recon, err := checkout.NewReconciler(api, manager, logger.Nop(), nil)
	require.NoError(t, err)
	carts := NewShopperCarts(store, logger.Nop())
	return &harness{
		api:     api,
		svc:     svc,
		carts:   carts,
		recon:   recon,
		cartAPI: NewCartHandlers(svc, carts, nil, logger.Nop()),
		checkout: CheckoutOptions{
			API:         api,
			CallbackURL: checkout.CallbackURL("https://shop.example.ng"),
		},
	}
}

func newRequest(method, target, body, shopperID string, params map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", testSlug)
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithShopperID(ctx, shopperID)
	ctx = middleware.WithStoreSlug(ctx, testSlug)
	return r.WithContext(ctx)
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}

type cartBody struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Count int `json:"count"`
	Quote struct {
		Subtotal      int64 `json:"subtotal"`
		Tax           int64 `json:"tax"`
		GrandTotal    int64 `json:"grandTotal"`
		Authoritative bool  `json:"authoritative"`
	} `json:"quote"`
	Display struct {
		GrandTotal string `json:"grandTotal"`
	} `json:"display"`
}

func (h *harness) add(t *testing.T, shopperID, productID string, qty int) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"productId":"` + productID + `","quantity":` + itoa(qty) + `}`
	return serve(h.cartAPI.Add(), newRequest(http.MethodPost, "/cart/items", body, shopperID, nil))
}

func itoa(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
