package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/retail-convenience/internal/domain/catalog"
)

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	ledger := h.carts.ForSession(token)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, ledger)
	})
}

func decodeAddItemRequest(data []byte) (productID string, err error) {
	d := jx.DecodeBytes(data)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return productID, err
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productID, err := decodeAddItemRequest(data)
	if err != nil || productID == "" {
		writeError(w, http.StatusBadRequest, "productId required")
		return
	}

	product, err := h.catalog.ProductByID(productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ledger := h.carts.ForSession(token)
	ledger.AddItem(*product)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, ledger)
	})
}

func decodeQuantityRequest(data []byte) (quantity int, err error) {
	d := jx.DecodeBytes(data)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return quantity, err
}

// handleUpdateCartItem replaces a line's quantity. Zero and negative values
// remove the line; an unknown line ID is a no-op. Either way the current
// cart view is returned.
func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quantity, err := decodeQuantityRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "quantity required")
		return
	}

	ledger := h.carts.ForSession(token)
	ledger.UpdateQuantity(r.PathValue("lineID"), quantity)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, ledger)
	})
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	ledger := h.carts.ForSession(token)
	ledger.RemoveItem(r.PathValue("lineID"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, ledger)
	})
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	h.carts.ForSession(token).Clear()
	w.WriteHeader(http.StatusNoContent)
}
