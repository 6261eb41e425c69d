package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/retail-convenience/internal/domain/cart"
	"github.com/xenking/retail-convenience/internal/domain/catalog"
	"github.com/xenking/retail-convenience/internal/domain/order"
)

// maxBodySize caps request bodies; every request in this API is tiny.
const maxBodySize = 64 << 10

// writeJSON encodes a response body with jx and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {code, message} error body, matching the wire shape
// used across the API.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// readBody reads a size-capped request body for decoding.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// encMoney writes a currency amount as a JSON number rounded to two digits.
// Domain values stay at full precision; rounding happens only here, at the
// display edge.
func encMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

// encTime writes timestamps in RFC 3339.
func encTime(e *jx.Encoder, t time.Time) {
	e.Str(t.Format(time.RFC3339))
}

func encodeCategory(e *jx.Encoder, c catalog.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("icon")
	e.Str(c.Icon)
	e.FieldStart("color")
	e.Str(c.Color)
	e.FieldStart("itemCount")
	e.Int(c.ItemCount)
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encMoney(e, p.Price)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("inStock")
	e.Bool(p.InStock)
	e.FieldStart("stockCount")
	e.Int(p.StockCount)
	e.ObjEnd()
}

func encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("lineId")
	e.Str(l.ID)
	e.FieldStart("product")
	encodeProduct(e, l.Product)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("lineTotal")
	encMoney(e, l.Total())
	e.ObjEnd()
}

// encodeCart writes the full cart view: lines plus derived totals.
func encodeCart(e *jx.Encoder, c *cart.Ledger) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Lines() {
		encodeCartLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(c.TotalItems())
	e.FieldStart("totalPrice")
	encMoney(e, c.TotalPrice())
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		encodeCartLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encMoney(e, o.Subtotal)
	e.FieldStart("tax")
	encMoney(e, o.Tax)
	e.FieldStart("total")
	encMoney(e, o.Total)
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("customerName")
	e.Str(o.CustomerName)
	if o.CustomerEmail != "" {
		e.FieldStart("customerEmail")
		e.Str(o.CustomerEmail)
	}
	e.FieldStart("createdAt")
	encTime(e, o.CreatedAt)
	e.FieldStart("estimatedReady")
	encTime(e, o.EstimatedReady)
	e.ObjEnd()
}
