package commerce

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// Store is the configuration a storefront needs to sell from one shop.
// Monetary fields are in naira and accept JSON numbers or strings.
type Store struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty"`
	BannerURL   string `json:"bannerUrl,omitempty"`
	BrandColor  string `json:"brandColor,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`

	IsActive     bool `json:"isActive"`
	AcceptOrders bool `json:"acceptOrders"`

	AcceptOnlinePayment bool `json:"acceptOnlinePayment"`
	AcceptBankTransfer  bool `json:"acceptBankTransfer"`
	AcceptCash          bool `json:"acceptCash"`

	MinimumOrderAmount decimal.Decimal  `json:"minimumOrderAmount"`
	DeliveryEnabled    bool             `json:"deliveryEnabled"`
	DeliveryFee        decimal.Decimal  `json:"deliveryFee"`
	PlatformFeePercent *decimal.Decimal `json:"platformFeePercent,omitempty"`

	BankDetails *BankDetails `json:"bankDetails,omitempty"`
}

// BankDetails are shown to shoppers who pay by bank transfer.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
}

// CanTakeOrders reports whether the store is open for checkout.
func (s Store) CanTakeOrders() bool {
	return s.IsActive && s.AcceptOrders
}

// PaymentMethods lists the methods enabled by the store flags, in display order.
func (s Store) PaymentMethods() []enums.PaymentMethod {
	methods := make([]enums.PaymentMethod, 0, 3)
	if s.AcceptOnlinePayment {
		methods = append(methods, enums.PaymentMethodOnline)
	}
	if s.AcceptBankTransfer {
		methods = append(methods, enums.PaymentMethodBankTransfer)
	}
	if s.AcceptCash {
		methods = append(methods, enums.PaymentMethodCash)
	}
	return methods
}

// AcceptsPayment reports whether method is enabled for the store.
func (s Store) AcceptsPayment(method enums.PaymentMethod) bool {
	for _, enabled := range s.PaymentMethods() {
		if enabled == method {
			return true
		}
	}
	return false
}

// Product is a catalogue entry as served by the commerce API.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	IsTaxable      bool            `json:"isTaxable"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	InStock        bool            `json:"inStock"`
	StockQuantity  *int            `json:"stockQuantity,omitempty"`
	TrackInventory bool            `json:"trackInventory"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	Category       string          `json:"category,omitempty"`
	IsActive       bool            `json:"isActive"`
}

// Available reports whether the product can be added to a cart in the given quantity.
func (p Product) Available(quantity int) bool {
	if !p.IsActive || !p.InStock {
		return false
	}
	if p.TrackInventory && p.StockQuantity != nil {
		return *p.StockQuantity >= quantity
	}
	return true
}

// StoreQuery filters the store directory.
type StoreQuery struct {
	Page   pagination.Params
	Search string
}

// ProductQuery filters a store catalogue.
type ProductQuery struct {
	Page     pagination.Params
	Category string
	Search   string
}

// StorePage is one page of the store directory.
type StorePage struct {
	Stores []Store         `json:"stores"`
	Meta   pagination.Meta `json:"meta"`
}

// ProductPage is one page of a store catalogue.
type ProductPage struct {
	Products   []Product       `json:"products"`
	Categories []string        `json:"categories,omitempty"`
	Meta       pagination.Meta `json:"meta"`
}

// OrderItem is an order line; the server prices it.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest creates an order.
type OrderRequest struct {
	CustomerName    string                `json:"customerName"`
	CustomerPhone   string                `json:"customerPhone"`
	CustomerEmail   string                `json:"customerEmail,omitempty"`
	CustomerAddress string                `json:"customerAddress,omitempty"`
	DeliveryNotes   string                `json:"deliveryNotes,omitempty"`
	FulfillmentType enums.FulfillmentType `json:"fulfillmentType"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod"`
	Items           []OrderItem           `json:"items"`
}

// PlacedOrder is the server acknowledgement of a created order.
type PlacedOrder struct {
	OrderNumber string          `json:"orderNumber"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentInitRequest begins a hosted payment for an order.
type PaymentInitRequest struct {
	OrderNumber string `json:"orderNumber"`
	Email       string `json:"email"`
	CallbackURL string `json:"callbackUrl"`
}

// PaymentSession points the shopper at the hosted payment page.
type PaymentSession struct {
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference,omitempty"`
}

// PaymentVerification is the settlement state reported for a gateway reference.
type PaymentVerification struct {
	OrderNumber   string              `json:"orderNumber"`
	Reference     string              `json:"reference"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	Amount        decimal.Decimal     `json:"amount"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
}

// OrderLine is a priced line of a tracked order.
type OrderLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Order is the authoritative view of a placed order.
type Order struct {
	OrderNumber     string                `json:"orderNumber"`
	Status          string                `json:"status"`
	PaymentStatus   enums.PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod"`
	FulfillmentType enums.FulfillmentType `json:"fulfillmentType"`
	CustomerName    string                `json:"customerName"`
	CustomerPhone   string                `json:"customerPhone"`
	CustomerEmail   string                `json:"customerEmail,omitempty"`
	CustomerAddress string                `json:"customerAddress,omitempty"`
	Items           []OrderLine           `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	Tax             decimal.Decimal       `json:"tax"`
	DeliveryFee     decimal.Decimal       `json:"deliveryFee"`
	Total           decimal.Decimal       `json:"total"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// PaymentProof points at out-of-band transfer evidence for manual review.
type PaymentProof struct {
	ProofURL string `json:"proofUrl"`
	Note     string `json:"note,omitempty"`
}
