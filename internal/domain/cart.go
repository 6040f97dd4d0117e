package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order summary constants, in store currency units.
var (
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShippingFee       = decimal.RequireFromString("9.99")
	TaxRate               = decimal.RequireFromString("0.07")
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 99

// LineAttributes holds the options picked for a cart line.
type LineAttributes struct {
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
}

// CartLine is one product and its quantity in a cart.
type CartLine struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Attributes *LineAttributes `json:"attributes,omitempty"`
}

// LineTotal returns unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderSummary holds the derived totals of a cart. Amounts are rounded to
// cents.
type OrderSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// MarshalJSON renders every amount with exactly two decimals, e.g. "128.40".
func (s OrderSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal string `json:"subtotal"`
		Shipping string `json:"shipping"`
		Tax      string `json:"tax"`
		Discount string `json:"discount"`
		Total    string `json:"total"`
	}{
		Subtotal: s.Subtotal.StringFixed(2),
		Shipping: s.Shipping.StringFixed(2),
		Tax:      s.Tax.StringFixed(2),
		Discount: s.Discount.StringFixed(2),
		Total:    s.Total.StringFixed(2),
	})
}

// ChangeKind identifies what a cart mutation did.
type ChangeKind string

const (
	ChangeItemAdded       ChangeKind = "item_added"
	ChangeQuantityUpdated ChangeKind = "quantity_updated"
	ChangeItemRemoved     ChangeKind = "item_removed"
	ChangeCleared         ChangeKind = "cleared"
	ChangePromoApplied    ChangeKind = "promo_applied"
	ChangePromoCleared    ChangeKind = "promo_cleared"
)

// CartChange is delivered to cart observers after every effective mutation.
type CartChange struct {
	Kind      ChangeKind
	ProductID string
	Quantity  int
	PromoCode string
}

// Cart is a session's shopping cart. Lines keep insertion order and product
// ids are unique. A Cart is not safe for concurrent use; Version is the stored
// revision it was loaded from and guards concurrent writers in the store.
type Cart struct {
	SessionID string
	Version   int
	UpdatedAt time.Time

	lines     []CartLine
	promo     *PromoCode
	observers map[int]func(CartChange)
	nextObsID int
}

// NewCart returns an empty cart for the given session.
func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, UpdatedAt: time.Now().UTC()}
}

// Subscribe registers fn to be called synchronously after each change. The
// returned function removes the registration.
func (c *Cart) Subscribe(fn func(CartChange)) (unsubscribe func()) {
	if c.observers == nil {
		c.observers = make(map[int]func(CartChange))
	}
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	return func() { delete(c.observers, id) }
}

func (c *Cart) notify(change CartChange) {
	c.UpdatedAt = time.Now().UTC()
	for _, fn := range c.observers {
		fn(change)
	}
}

// AddItem adds quantity units of p. An existing line for the same product is
// incremented; quantities below 1 are ignored.
func (c *Cart) AddItem(p Product, quantity int) {
	c.AddItemWithAttributes(p, quantity, nil)
}

// AddItemWithAttributes is AddItem with a color and size selection. When the
// product is already in the cart the existing line keeps its attributes.
func (c *Cart) AddItemWithAttributes(p Product, quantity int, attrs *LineAttributes) {
	if quantity < 1 {
		return
	}

	if idx := c.FindLineIndex(p.ID); idx >= 0 {
		c.lines[idx].Quantity += quantity
		c.notify(CartChange{Kind: ChangeItemAdded, ProductID: p.ID, Quantity: c.lines[idx].Quantity})
		return
	}

	c.lines = append(c.lines, CartLine{
		ProductID:  p.ID,
		Name:       p.Name,
		ImageURL:   p.PrimaryImage(),
		UnitPrice:  decimal.NewFromFloat(p.Price),
		Quantity:   quantity,
		Attributes: attrs,
	})
	c.notify(CartChange{Kind: ChangeItemAdded, ProductID: p.ID, Quantity: quantity})
}

// UpdateQuantity sets the quantity of a line. A quantity below 1 removes the
// line. Unknown product ids are ignored.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	idx := c.FindLineIndex(productID)
	if idx < 0 {
		return
	}
	if quantity < 1 {
		c.removeAt(idx)
		return
	}
	if c.lines[idx].Quantity == quantity {
		return
	}
	c.lines[idx].Quantity = quantity
	c.notify(CartChange{Kind: ChangeQuantityUpdated, ProductID: productID, Quantity: quantity})
}

// RemoveItem deletes the line for productID if present.
func (c *Cart) RemoveItem(productID string) {
	if idx := c.FindLineIndex(productID); idx >= 0 {
		c.removeAt(idx)
	}
}

func (c *Cart) removeAt(idx int) {
	productID := c.lines[idx].ProductID
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	c.notify(CartChange{Kind: ChangeItemRemoved, ProductID: productID})
}

// Clear empties the cart and drops any applied promo code.
func (c *Cart) Clear() {
	if len(c.lines) == 0 && c.promo == nil {
		return
	}
	c.lines = nil
	c.promo = nil
	c.notify(CartChange{Kind: ChangeCleared})
}

// ApplyPromoCode applies code, replacing any previous one. An unknown code
// clears the applied promo and returns ErrInvalidPromoCode.
func (c *Cart) ApplyPromoCode(code string) error {
	promo, ok := LookupPromoCode(code)
	if !ok {
		c.ClearPromoCode()
		return ErrInvalidPromoCode
	}
	c.promo = &promo
	c.notify(CartChange{Kind: ChangePromoApplied, PromoCode: promo.Code})
	return nil
}

// ClearPromoCode removes the applied promo code, if any.
func (c *Cart) ClearPromoCode() {
	if c.promo == nil {
		return
	}
	c.promo = nil
	c.notify(CartChange{Kind: ChangePromoCleared})
}

// PromoCode returns the applied promo code, or nil.
func (c *Cart) PromoCode() *PromoCode {
	if c.promo == nil {
		return nil
	}
	p := *c.promo
	return &p
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Discount is computed from the current subtotal every time it is asked for,
// so edits after applying a code are reflected without reapplying it.
func (c *Cart) Discount() decimal.Decimal {
	if c.promo == nil {
		return decimal.Zero
	}
	return c.promo.DiscountOn(c.Subtotal())
}

// OrderSummary derives shipping, tax, discount and total from the current
// lines. The total never goes below zero.
func (c *Cart) OrderSummary() OrderSummary {
	subtotal := c.Subtotal()

	shipping := FlatShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate)
	discount := c.Discount()

	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return OrderSummary{
		Subtotal: subtotal.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax.Round(2),
		Discount: discount.Round(2),
		Total:    total.Round(2),
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, l := range c.lines {
		count += l.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// FindLineIndex returns the index of the line for productID, or -1.
func (c *Cart) FindLineIndex(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartState is the persisted form of a cart.
type CartState struct {
	SessionID string     `json:"session_id"`
	Version   int        `json:"version"`
	Lines     []CartLine `json:"lines"`
	PromoCode string     `json:"promo_code,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Snapshot captures the cart for persistence.
func (c *Cart) Snapshot() CartState {
	s := CartState{
		SessionID: c.SessionID,
		Version:   c.Version,
		Lines:     c.Lines(),
		UpdatedAt: c.UpdatedAt,
	}
	if c.promo != nil {
		s.PromoCode = c.promo.Code
	}
	return s
}

// RestoreCart rebuilds a cart from a snapshot. Lines with a quantity below 1
// or a repeated product id are dropped, and a promo code that is no longer
// recognised is discarded.
func RestoreCart(s CartState) *Cart {
	c := &Cart{SessionID: s.SessionID, Version: s.Version, UpdatedAt: s.UpdatedAt}
	for _, l := range s.Lines {
		if l.Quantity < 1 || c.FindLineIndex(l.ProductID) >= 0 {
			continue
		}
		c.lines = append(c.lines, l)
	}
	if s.PromoCode != "" {
		if promo, ok := LookupPromoCode(s.PromoCode); ok {
			c.promo = &promo
		}
	}
	return c
}
