package order

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/retail-convenience/internal/domain/cart"
)

// Ready-time estimate bounds, minutes after order creation.
const (
	readyMinMinutes = 15
	readyMaxMinutes = 45
)

// Assembler builds completed orders from cart snapshots. Assembly is pure
// and total: any well-formed snapshot produces an order, including an empty
// one, which yields a valid zero-total order.
//
// Clearing the cart after checkout is the caller's responsibility, and must
// happen only after the snapshot has been taken.
type Assembler struct {
	numbers *NumberGenerator
	now     func() time.Time
	randInt func(n int) int
}

// NewAssembler returns an Assembler using the wall clock and math/rand.
func NewAssembler(numbers *NumberGenerator) *Assembler {
	return &Assembler{
		numbers: numbers,
		now:     time.Now,
		randInt: rand.IntN,
	}
}

// Create assembles an order from the given cart snapshot.
//
// Subtotal, tax (subtotal × 8%), and total are kept at full precision;
// rounding to two digits happens at display time. A blank customer name is
// replaced with GuestName, a blank email stays absent. The estimated-ready
// time is a uniform random 15–45 minutes after creation.
func (a *Assembler) Create(lines []cart.Line, paymentMethod, customerName, customerEmail string) *Order {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	tax := subtotal.Mul(TaxRate)

	name := strings.TrimSpace(customerName)
	if name == "" {
		name = GuestName
	}

	createdAt := a.now()
	readyOffset := readyMinMinutes + a.randInt(readyMaxMinutes-readyMinMinutes+1)

	return &Order{
		Number:         a.numbers.Next(),
		Lines:          lines,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          subtotal.Add(tax),
		PaymentMethod:  paymentMethod,
		CustomerName:   name,
		CustomerEmail:  strings.TrimSpace(customerEmail),
		CreatedAt:      createdAt,
		EstimatedReady: createdAt.Add(time.Duration(readyOffset) * time.Minute),
	}
}
