// Package handler implements the storefront HTTP API. Handlers are written
// against net/http directly with go-faster/jx codecs; business logic lives
// in the domain packages.
package handler

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/retail-convenience/internal/domain/cart"
	"github.com/xenking/retail-convenience/internal/domain/catalog"
	"github.com/xenking/retail-convenience/internal/domain/order"
	"github.com/xenking/retail-convenience/internal/domain/payment"
	"github.com/xenking/retail-convenience/internal/domain/session"
)

// sessionHeader carries the opaque session token issued by login.
const sessionHeader = "X-Session-Token"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// LoginDelay simulates backend latency on the login path. Zero in tests.
	LoginDelay time.Duration
	// Meter records API metrics. Nil disables them.
	Meter metric.Meter
}

// Handler wires the storefront domain services to HTTP routes.
type Handler struct {
	catalog   *catalog.Provider
	carts     *cart.Store
	sessions  *session.Registry
	assembler *order.Assembler
	processor *payment.Processor
	payments  payment.Store

	loginDelay  time.Duration
	ordersTotal metric.Int64Counter
	// sleep is replaceable in tests so login runs synchronously.
	sleep func(time.Duration)
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	cat *catalog.Provider,
	carts *cart.Store,
	sessions *session.Registry,
	assembler *order.Assembler,
	processor *payment.Processor,
	payments payment.Store,
) *Handler {
	meter := cfg.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("handler")
	}
	ordersTotal, _ := meter.Int64Counter("storefront.orders.completed")

	return &Handler{
		catalog:     cat,
		carts:       carts,
		sessions:    sessions,
		assembler:   assembler,
		processor:   processor,
		payments:    payments,
		loginDelay:  cfg.LoginDelay,
		ordersTotal: ordersTotal,
		sleep:       time.Sleep,
	}
}

// Routes registers every API route on a fresh mux under the /api prefix.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.HandleFunc("POST /api/logout", h.handleLogout)

	mux.HandleFunc("GET /api/categories", h.handleListCategories)
	mux.HandleFunc("GET /api/categories/{categoryID}/products", h.handleListProducts)
	mux.HandleFunc("GET /api/products/{productID}", h.handleGetProduct)

	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("POST /api/cart/items", h.handleAddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{lineID}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{lineID}", h.handleRemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.handleClearCart)

	mux.HandleFunc("POST /api/checkout", h.handleCheckout)

	mux.HandleFunc("GET /api/payment-info", h.handleGetPaymentInfo)
	mux.HandleFunc("PUT /api/payment-info", h.handleSavePaymentInfo)
	mux.HandleFunc("DELETE /api/payment-info", h.handleClearPaymentInfo)

	return mux
}

// requireSession resolves the session token header to an authenticated gate.
// On failure it writes a 401 and returns ok=false.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (token string, ok bool) {
	token = r.Header.Get(sessionHeader)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "session token required")
		return "", false
	}

	gate, err := h.sessions.Lookup(token)
	if err != nil || !gate.Authenticated() {
		writeError(w, http.StatusUnauthorized, "session token required")
		return "", false
	}
	return token, true
}
