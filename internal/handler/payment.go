package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/retail-convenience/internal/domain/payment"
)

func encodePaymentRecord(e *jx.Encoder, rec *payment.Record) {
	e.ObjStart()
	e.FieldStart("customerName")
	e.Str(rec.Name)
	e.FieldStart("customerEmail")
	e.Str(rec.Email)
	e.FieldStart("cardNumber")
	e.Str(rec.CardNumber)
	e.FieldStart("expiryDate")
	e.Str(rec.Expiry)
	e.ObjEnd()
}

func decodePaymentRecord(data []byte) (payment.Record, error) {
	var rec payment.Record
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customerName":
			rec.Name, err = d.Str()
		case "customerEmail":
			rec.Email, err = d.Str()
		case "cardNumber":
			rec.CardNumber, err = d.Str()
		case "expiryDate":
			rec.Expiry, err = d.Str()
		default:
			// Unknown fields, the CVV included, are dropped on the floor.
			err = d.Skip()
		}
		return err
	})
	return rec, err
}

func (h *Handler) handleGetPaymentInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSession(w, r); !ok {
		return
	}

	rec, err := h.payments.Load(r.Context())
	if err != nil {
		if errors.Is(err, payment.ErrNoSavedRecord) {
			writeError(w, http.StatusNotFound, "no saved payment info")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePaymentRecord(e, rec)
	})
}

func (h *Handler) handleSavePaymentInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSession(w, r); !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := decodePaymentRecord(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.payments.Save(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearPaymentInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireSession(w, r); !ok {
		return
	}

	if err := h.payments.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
