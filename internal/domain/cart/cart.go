// Package cart implements the per-session shopping cart ledger: an ordered
// collection of product lines with derived totals.
package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/retail-convenience/internal/domain/catalog"
)

// Line is one product-and-quantity entry in a cart. The line ID is distinct
// from the product ID and stable across quantity updates.
type Line struct {
	ID       string
	Product  catalog.Product
	Quantity int
}

// Total returns price × quantity for this line at full precision.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Ledger holds the cart lines for a single shopping session. A cart never
// contains two lines for the same product: adding an already-present product
// increments its existing line.
//
// The original app mutated the cart from a single UI thread. Exposed over
// HTTP, concurrent requests on one session are possible, so every operation
// serializes on the ledger mutex.
type Ledger struct {
	mu    sync.Mutex
	lines []Line
}

// NewLedger returns an empty cart ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AddItem adds one unit of product to the cart. If a line for the product
// already exists its quantity is incremented, otherwise a new line with
// quantity 1 is appended. The affected line is returned.
func (c *Ledger) AddItem(product catalog.Product) Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			c.lines[i].Quantity++
			return c.lines[i]
		}
	}

	line := Line{
		ID:       uuid.New().String(),
		Product:  product,
		Quantity: 1,
	}
	c.lines = append(c.lines, line)
	return line
}

// UpdateQuantity replaces the quantity of the line with the given ID.
// A quantity of zero or less removes the line. Unknown line IDs are a no-op.
func (c *Ledger) UpdateQuantity(lineID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.remove(lineID)
		return
	}
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem deletes the line with the given ID. Unknown IDs are a no-op.
func (c *Ledger) RemoveItem(lineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(lineID)
}

// remove must be called with c.mu held.
func (c *Ledger) remove(lineID string) {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (c *Ledger) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// TotalItems returns the sum of quantities across all lines.
func (c *Ledger) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice returns the subtotal (Σ price × quantity) at full precision.
// Rounding to display precision is the caller's concern.
func (c *Ledger) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Lines returns a snapshot copy of the cart lines in insertion order.
func (c *Ledger) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
