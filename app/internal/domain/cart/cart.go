package cart

import (
	domproduct "example.com/storefront-cart/app/internal/domain/product"
)

// Item is a product line in the cart together with its quantity.
type Item struct {
	domproduct.Product
	Amount int64
}

// Subtotal returns price times amount for the line.
func (i Item) Subtotal() float64 {
	return i.Price * float64(i.Amount)
}

// Cart is an ordered collection of line-items, unique by product ID.
//
// Cart values are treated as immutable: every mutating helper returns a new
// Cart and leaves the receiver untouched. Version is bumped by the store on
// each committed mutation and is not persisted.
type Cart struct {
	Items   []Item
	Version uint64
}

func (c Cart) Find(productID int64) (Item, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return Item{}, false
	}
	return c.Items[idx], true
}

func (c Cart) Contains(productID int64) bool {
	return c.indexOf(productID) >= 0
}

// Append returns a cart with item added after the existing lines.
func (c Cart) Append(item Item) Cart {
	items := make([]Item, 0, len(c.Items)+1)
	items = append(items, c.Items...)
	items = append(items, item)
	return Cart{Items: items, Version: c.Version}
}

// Remove returns a cart without productID, keeping the order of the rest.
func (c Cart) Remove(productID int64) (Cart, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c, ErrItemNotFound
	}
	items := make([]Item, 0, len(c.Items)-1)
	items = append(items, c.Items[:idx]...)
	items = append(items, c.Items[idx+1:]...)
	return Cart{Items: items, Version: c.Version}, nil
}

// WithAmount returns a cart where only productID's amount is replaced.
func (c Cart) WithAmount(productID int64, amount int64) (Cart, error) {
	if amount <= 0 {
		return c, ErrInvalidAmount
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return c, ErrItemNotFound
	}
	next := c.Clone()
	next.Items[idx].Amount = amount
	return next, nil
}

func (c Cart) Clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, Version: c.Version}
}

func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// Count returns the number of units across all lines.
func (c Cart) Count() int64 {
	var n int64
	for _, item := range c.Items {
		n += item.Amount
	}
	return n
}

func (c Cart) indexOf(productID int64) int {
	for i, item := range c.Items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}
