package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/currency"
)

// Snapshot is the product data captured when it was added to the cart. It drives display
// and advisory pricing only; the commerce API reprices every order it accepts.
type Snapshot struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	IsTaxable      bool            `json:"isTaxable"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	InStock        bool            `json:"inStock"`
	StockQuantity  *int            `json:"stockQuantity,omitempty"`
	TrackInventory bool            `json:"trackInventory"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	Category       string          `json:"category,omitempty"`
}

// SnapshotFrom captures the cart-relevant fields of a catalogue product.
func SnapshotFrom(p commerce.Product) Snapshot {
	return Snapshot{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		IsTaxable:      p.IsTaxable,
		TaxRate:        p.TaxRate,
		InStock:        p.InStock,
		StockQuantity:  p.StockQuantity,
		TrackInventory: p.TrackInventory,
		ImageURL:       p.ImageURL,
		Category:       p.Category,
	}
}

// UnitPrice is the snapshot price in kobo.
func (s Snapshot) UnitPrice() currency.Minor {
	return currency.ToMinor(s.Price)
}

// LineItem is one product and the quantity the shopper intends to buy.
type LineItem struct {
	ProductID string   `json:"productId"`
	Product   Snapshot `json:"product"`
	Quantity  int      `json:"quantity"`
}

// LineTotal is unit price times quantity, in kobo.
func (l LineItem) LineTotal() currency.Minor {
	return l.Product.UnitPrice() * currency.Minor(l.Quantity)
}
