package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// ErrContextUnavailable signals a cart used without a bound store. It is a programming
// error: mutations panic with it rather than write into the wrong cart.
var ErrContextUnavailable = errors.New("cart: store context unavailable")

const (
	keyPrefix = "cart_"
	// FallbackKey holds the shared cart used when no store slug is known.
	FallbackKey = "cart"
)

// KeyFor returns the storage key of the cart for slug.
func KeyFor(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return FallbackKey
	}
	return keyPrefix + slug
}

// Binding is the explicit store context every cart is opened through.
type Binding struct {
	Slug    string
	Storage storage.Store
}

// Cart is the line items of one store, persisted after every mutation.
// A Cart is confined to the request that opened it and is not safe for concurrent use.
type Cart struct {
	slug    string
	key     string
	storage storage.Store
	logg    *logger.Logger
	items   []LineItem
}

// Open loads the cart bound to b. Missing, corrupt or unreadable stored data yields an
// empty cart; only a missing binding is an error.
func Open(ctx context.Context, b *Binding, logg *logger.Logger) (*Cart, error) {
	if b == nil || b.Storage == nil {
		return nil, ErrContextUnavailable
	}
	if logg == nil {
		logg = logger.Nop()
	}
	c := &Cart{
		slug:    strings.TrimSpace(b.Slug),
		key:     KeyFor(b.Slug),
		storage: b.Storage,
		logg:    logg,
	}
	c.items = c.load(ctx)
	return c, nil
}

func (c *Cart) load(ctx context.Context) []LineItem {
	ctx = c.logg.WithFields(ctx, map[string]any{"cart_key": c.key})

	raw, err := c.storage.Get(ctx, c.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		c.logg.Error(ctx, "cart.load.storage_failed", err)
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "cart.load.corrupt")
		return nil
	}

	items := make([]LineItem, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		var item LineItem
		if err := json.Unmarshal(entry, &item); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "cart.load.item_skipped")
			continue
		}
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		if item.Product.ID == "" {
			item.Product.ID = item.ProductID
		}
		if i, ok := index[item.ProductID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(items)
		items = append(items, item)
	}
	return items
}

func (c *Cart) persist(ctx context.Context) {
	ctx = c.logg.WithFields(ctx, map[string]any{"cart_key": c.key})
	items := c.items
	if items == nil {
		items = []LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		c.logg.Error(ctx, "cart.persist.encode_failed", err)
		return
	}
	if err := c.storage.Set(ctx, c.key, raw); err != nil {
		c.logg.Error(ctx, "cart.persist.storage_failed", err)
	}
}

func (c *Cart) mustBeBound() {
	if c == nil || c.storage == nil {
		panic(ErrContextUnavailable)
	}
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add increments the quantity of productID, appending a line the first time it is seen.
// Non-positive quantities are ignored.
func (c *Cart) Add(ctx context.Context, productID string, product Snapshot, quantity int) {
	c.mustBeBound()
	productID = strings.TrimSpace(productID)
	if productID == "" || quantity <= 0 {
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity += quantity
	} else {
		if product.ID == "" {
			product.ID = productID
		}
		c.items = append(c.items, LineItem{ProductID: productID, Product: product, Quantity: quantity})
	}
	c.persist(ctx)
}

// Remove deletes the line for productID; absent products are a no-op.
func (c *Cart) Remove(ctx context.Context, productID string) {
	c.mustBeBound()
	i := c.indexOf(strings.TrimSpace(productID))
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.persist(ctx)
}

// UpdateQuantity overwrites the quantity of productID. Zero or less removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	c.mustBeBound()
	if quantity <= 0 {
		c.Remove(ctx, productID)
		return
	}
	i := c.indexOf(strings.TrimSpace(productID))
	if i < 0 {
		return
	}
	c.items[i].Quantity = quantity
	c.persist(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	c.mustBeBound()
	c.items = nil
	c.persist(ctx)
}

// Count is the sum of all line quantities, shown as the cart badge.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	if c == nil {
		return nil
	}
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line for productID.
func (c *Cart) Item(productID string) (LineItem, bool) {
	if c == nil {
		return LineItem{}, false
	}
	if i := c.indexOf(strings.TrimSpace(productID)); i >= 0 {
		return c.items[i], true
	}
	return LineItem{}, false
}

// Len is the number of distinct products.
func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Slug is the store the cart belongs to; blank for the fallback cart.
func (c *Cart) Slug() string {
	if c == nil {
		return ""
	}
	return c.slug
}

// Key is the storage key the cart persists under.
func (c *Cart) Key() string {
	if c == nil {
		return ""
	}
	return c.key
}
