// Package cart implements the point-of-sale cart: product lines with
// quantities, kept in insertion order.
package cart

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
)

const (
	// MaxQuantity is the largest quantity a single line can hold.
	MaxQuantity = 9999
	// MaxUnits bounds the units in one cart, which is the number of items
	// a sale records.
	MaxUnits = 10000
)

type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (l Line) Amount() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is not safe for concurrent use; the checkout session guards it.
// Every line it holds has Quantity >= 1 and a distinct product id.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts one unit of p in the cart, incrementing an existing line. A line
// already at MaxQuantity is left unchanged.
func (c *Cart) Add(p catalog.Product) {
	if i := c.index(p.ID); i >= 0 {
		if c.lines[i].Quantity < MaxQuantity {
			c.lines[i].Quantity++
		}
		return
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// SetQuantity sets the line quantity. Zero or less removes the line, more
// than MaxQuantity is capped; an unknown product id is ignored.
func (c *Cart) SetQuantity(productID string, qty int) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return
	}
	c.lines[i].Quantity = min(qty, MaxQuantity)
}

// SetQuantityInput applies raw user input to a line. Unparseable input is
// treated as zero and removes the line.
func (c *Cart) SetQuantityInput(productID, raw string) {
	c.SetQuantity(productID, ParseQuantity(raw))
}

func (c *Cart) Remove(productID string) {
	c.SetQuantity(productID, 0)
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Refresh replaces the product snapshot held by a line, keeping its quantity.
// It reports whether the product was in the cart.
func (c *Cart) Refresh(p catalog.Product) bool {
	i := c.index(p.ID)
	if i < 0 {
		return false
	}
	c.lines[i].Product = p
	return true
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Amount())
	}
	return sum
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) UnitCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Units expands the cart into one product per unit, in line order.
func (c *Cart) Units() []catalog.Product {
	out := make([]catalog.Product, 0, c.UnitCount())
	for _, l := range c.lines {
		for i := 0; i < l.Quantity; i++ {
			out = append(out, l.Product)
		}
	}
	return out
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// ParseQuantity reads a quantity typed by a cashier. Anything that is not a
// whole number between 0 and MaxQuantity counts as zero.
func ParseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > MaxQuantity {
		return 0
	}
	return n
}
