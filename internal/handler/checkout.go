package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/retail-convenience/internal/domain/payment"
)

// checkoutRequest is the mock payment form. The CVV is accepted on the wire
// because the form has the field, but it goes no further than this struct:
// the saved-payment record cannot hold it.
type checkoutRequest struct {
	PaymentMethod   string
	CustomerName    string
	CustomerEmail   string
	CardNumber      string
	ExpiryDate      string
	CVV             string
	SavePaymentInfo bool
}

func decodeCheckoutRequest(data []byte) (checkoutRequest, error) {
	var req checkoutRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "paymentMethod":
			req.PaymentMethod, err = d.Str()
		case "customerName":
			req.CustomerName, err = d.Str()
		case "customerEmail":
			req.CustomerEmail, err = d.Str()
		case "cardNumber":
			req.CardNumber, err = d.Str()
		case "expiryDate":
			req.ExpiryDate, err = d.Str()
		case "cvv":
			req.CVV, err = d.Str()
		case "savePaymentInfo":
			req.SavePaymentInfo, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// handleCheckout runs the simulated payment, assembles the completed order
// from a cart snapshot, and clears the cart. An empty cart checks out fine
// and produces a zero-total order; the store has always allowed that.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeCheckoutRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown payment method")
		return
	}

	// Opt-in save happens before the charge, as the original form did.
	if req.SavePaymentInfo {
		rec := payment.Record{
			Name:       req.CustomerName,
			Email:      req.CustomerEmail,
			CardNumber: req.CardNumber,
			Expiry:     req.ExpiryDate,
		}
		if err := h.payments.Save(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save payment info")
			return
		}
	}

	// The charge cannot be aborted once started; we wait it out even if the
	// client goes away. Only re-submission is blocked while it runs.
	done := make(chan struct{})
	if err := h.processor.Charge(token, method, func() { close(done) }); err != nil {
		if errors.Is(err, payment.ErrInProgress) {
			writeError(w, http.StatusConflict, "payment already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	<-done

	// Snapshot first, then clear: the order owns the line data from here on.
	ledger := h.carts.ForSession(token)
	snapshot := ledger.Lines()
	o := h.assembler.Create(snapshot, method.Label(), req.CustomerName, req.CustomerEmail)
	ledger.Clear()

	h.ordersTotal.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("payment.method", string(method)),
	))

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
