// Package order assembles immutable completed-order records from cart
// snapshots at checkout time. Orders exist for confirmation display only and
// are not persisted.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/retail-convenience/internal/domain/cart"
)

// TaxRate is the flat sales tax applied to every order. It is not
// configurable and not geography-aware; a known limitation of the store.
var TaxRate = decimal.RequireFromString("0.08")

// GuestName is recorded on orders placed without a customer name.
const GuestName = "Guest"

// Order is an immutable snapshot produced at checkout time.
type Order struct {
	// Number is the generated order number. Uniqueness is only "very
	// likely", not guaranteed; see NumberGenerator.
	Number string

	// Lines is the cart snapshot taken at checkout.
	Lines []cart.Line

	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	// PaymentMethod is the display label of the method used.
	PaymentMethod string

	// CustomerName is never empty; blank input becomes GuestName.
	CustomerName string
	// CustomerEmail is empty when the customer left it blank.
	CustomerEmail string

	CreatedAt      time.Time
	EstimatedReady time.Time
}
