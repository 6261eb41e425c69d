package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/retail-convenience/internal/domain/session"
)

// loginFailedMessage is the exact user-facing text for a failed login.
const loginFailedMessage = "Invalid username or password. Please try again."

type loginRequest struct {
	Username string
	Password string
}

func decodeLoginRequest(data []byte) (loginRequest, error) {
	var req loginRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "username":
			req.Username, err = d.Str()
		case "password":
			req.Password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeLoginRequest(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Simulated backend latency, matching the original login flow.
	h.sleep(h.loginDelay)

	token, err := h.sessions.Begin(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, loginFailedMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("token")
		e.Str(token)
		e.FieldStart("user")
		e.Str(req.Username)
		e.ObjEnd()
	})
}

// handleLogout ends the session unconditionally. The cart dies with it.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(sessionHeader)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "session token required")
		return
	}

	h.sessions.End(token)
	h.carts.Drop(token)
	w.WriteHeader(http.StatusNoContent)
}
