package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
)

type fakeAPI struct {
	mu sync.Mutex

	placed    commerce.PlacedOrder
	placeErr  error
	payment   commerce.PaymentSession
	initErr   error
	placeHook func()

	orders []commerce.OrderRequest
	inits  []commerce.PaymentInitRequest
}

func (f *fakeAPI) PlaceOrder(_ context.Context, _ string, req commerce.OrderRequest) (commerce.PlacedOrder, error) {
	if f.placeHook != nil {
		f.placeHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.placeErr != nil {
		return commerce.PlacedOrder{}, f.placeErr
	}
	return f.placed, nil
}

func (f *fakeAPI) InitializePayment(_ context.Context, _ string, req commerce.PaymentInitRequest) (commerce.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits = append(f.inits, req)
	if f.initErr != nil {
		return commerce.PaymentSession{}, f.initErr
	}
	return f.payment, nil
}

func (f *fakeAPI) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func testStore() commerce.Store {
	return commerce.Store{
		Slug:                "mama-put",
		Name:                "Mama Put",
		Phone:               "08031234567",
		Email:               "orders@mamaput.ng",
		IsActive:            true,
		AcceptOrders:        true,
		AcceptOnlinePayment: true,
		AcceptBankTransfer:  true,
		AcceptCash:          true,
		BankDetails: &commerce.BankDetails{
			BankName:      "GTBank",
			AccountName:   "Mama Put Ltd",
			AccountNumber: "0123456789",
		},
	}
}

func validDetails() CustomerDetails {
	return CustomerDetails{
		Name:  "Ada Obi",
		Phone: "0803 123 4567",
		Email: "ada@example.com",
	}
}

func filledCart(t *testing.T) *cart.Cart {
	t.Helper()
	return filledCartIn(t, memory.New(0))
}

func filledCartIn(t *testing.T, store storage.Store) *cart.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := cart.Open(ctx, &cart.Binding{Slug: "mama-put", Storage: store}, nil)
	require.NoError(t, err)
	c.Add(ctx, "jollof", cart.Snapshot{Name: "Jollof rice", Price: decimal.NewFromInt(1000), IsTaxable: true, TaxRate: decimal.RequireFromString("7.5"), InStock: true}, 2)
	c.Add(ctx, "plantain", cart.Snapshot{Name: "Dodo", Price: decimal.NewFromInt(500), InStock: true}, 3)
	return c
}

func newSession(t *testing.T, c *cart.Cart, api *fakeAPI, mutate ...func(*SessionParams)) *Session {
	t.Helper()
	params := SessionParams{
		Cart:        c,
		Store:       testStore(),
		API:         api,
		CallbackURL: CallbackURL("https://shop.example.ng/"),
	}
	for _, fn := range mutate {
		fn(&params)
	}
	s, err := NewSession(params)
	require.NoError(t, err)
	return s
}

// detailsSession is a session already on the details step with a valid form.
func detailsSession(t *testing.T, c *cart.Cart, api *fakeAPI, method string, mutate ...func(*SessionParams)) *Session {
	t.Helper()
	s := newSession(t, c, api, mutate...)
	require.NoError(t, s.Proceed())
	s.SetDetails(validDetails())
	s.SelectPayment(paymentMethod(method))
	return s
}
