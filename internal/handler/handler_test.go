package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/retail-convenience/internal/domain/cart"
	"github.com/xenking/retail-convenience/internal/domain/catalog"
	"github.com/xenking/retail-convenience/internal/domain/order"
	"github.com/xenking/retail-convenience/internal/domain/payment"
	"github.com/xenking/retail-convenience/internal/domain/session"
)

// --- Response shapes, decoded with encoding/json to stay codec-agnostic ---

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type loginBody struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

type productBody struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	InStock    bool    `json:"inStock"`
	StockCount int     `json:"stockCount"`
}

type cartLineBody struct {
	LineID    string      `json:"lineId"`
	Product   productBody `json:"product"`
	Quantity  int         `json:"quantity"`
	LineTotal float64     `json:"lineTotal"`
}

type cartBody struct {
	Items      []cartLineBody `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalPrice float64        `json:"totalPrice"`
}

type orderBody struct {
	OrderNumber    string         `json:"orderNumber"`
	Items          []cartLineBody `json:"items"`
	Subtotal       float64        `json:"subtotal"`
	Tax            float64        `json:"tax"`
	Total          float64        `json:"total"`
	PaymentMethod  string         `json:"paymentMethod"`
	CustomerName   string         `json:"customerName"`
	CustomerEmail  *string        `json:"customerEmail"`
	CreatedAt      string         `json:"createdAt"`
	EstimatedReady string         `json:"estimatedReady"`
}

type paymentInfoBody struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CardNumber    string `json:"cardNumber"`
	ExpiryDate    string `json:"expiryDate"`
}

// --- Test fixture ---

type fixture struct {
	handler  *Handler
	mux      *http.ServeMux
	payments *payment.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	processor := payment.NewSyncProcessor()
	payments := payment.NewMemoryStore()
	h := New(
		Config{},
		catalog.MustLoad(),
		cart.NewStore(),
		session.NewRegistry(),
		order.NewAssembler(order.NewNumberGenerator(zaptest.NewLogger(t))),
		processor,
		payments,
	)
	h.sleep = func(time.Duration) {}

	return &fixture{handler: h, mux: h.Routes(), payments: payments}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "admin", "password": "password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return decode[loginBody](t, w).Token
}

// --- Tests ---

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "admin", "password": "password",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[loginBody](t, w)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "admin", body.User)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "admin", "password": "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "Invalid username or password. Please try again.", body.Message)
}

func TestRoutes_RequireSession(t *testing.T) {
	f := newFixture(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/categories"},
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/checkout"},
		{http.MethodGet, "/api/payment-info"},
	}
	for _, p := range paths {
		w := f.do(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}

	// Garbage tokens are rejected too.
	w := f.do(t, http.MethodGet, "/api/cart", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListCategories(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	w := f.do(t, http.MethodGet, "/api/categories", token, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var categories []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	require.Len(t, categories, 4)
	assert.Equal(t, "Beverages", categories[0]["name"])
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	w := f.do(t, http.MethodGet, "/api/products/nope", token, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	// Add the same product twice: one line, quantity 2.
	f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "cola-12oz"})
	w := f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "cola-12oz"})
	require.Equal(t, http.StatusOK, w.Code)

	c := decode[cartBody](t, w)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.TotalItems)
	assert.InDelta(t, 3.98, c.TotalPrice, 0.0001)

	// Add a second product and drop the first line via quantity 0.
	w = f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "orange-juice-16oz"})
	c = decode[cartBody](t, w)
	require.Len(t, c.Items, 2)

	w = f.do(t, http.MethodPatch, "/api/cart/items/"+c.Items[0].LineID, token, map[string]int{"quantity": 0})
	c = decode[cartBody](t, w)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "orange-juice-16oz", c.Items[0].Product.ID)

	// Clear empties unconditionally.
	w = f.do(t, http.MethodDelete, "/api/cart", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	c = decode[cartBody](t, f.do(t, http.MethodGet, "/api/cart", token, nil))
	assert.Zero(t, c.TotalItems)
}

func TestCartIsolation_BetweenSessions(t *testing.T) {
	f := newFixture(t)
	a := f.login(t)
	b := f.login(t)

	f.do(t, http.MethodPost, "/api/cart/items", a, map[string]string{"productId": "cola-12oz"})

	c := decode[cartBody](t, f.do(t, http.MethodGet, "/api/cart", b, nil))
	assert.Zero(t, c.TotalItems)
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	w := f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "nope"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "cola-12oz"})
	c := decode[cartBody](t, f.do(t, http.MethodGet, "/api/cart", token, nil))
	f.do(t, http.MethodPatch, "/api/cart/items/"+c.Items[0].LineID, token, map[string]int{"quantity": 2})
	f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "orange-juice-16oz"})

	w := f.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"paymentMethod": "card",
		"customerName":  "Stephanie",
		"customerEmail": "steph@example.com",
	})

	require.Equal(t, http.StatusOK, w.Code)
	o := decode[orderBody](t, w)
	assert.Regexp(t, `^RC\d+$`, o.OrderNumber)
	assert.InDelta(t, 7.47, o.Subtotal, 0.0001)
	assert.InDelta(t, 0.60, o.Tax, 0.0001)  // 0.5976 rounded at the edge
	assert.InDelta(t, 8.07, o.Total, 0.0001) // 8.0676 rounded at the edge
	assert.Equal(t, "Credit Card", o.PaymentMethod)
	assert.Equal(t, "Stephanie", o.CustomerName)
	require.NotNil(t, o.CustomerEmail)
	assert.Len(t, o.Items, 2)

	// The cart is cleared after the snapshot is taken.
	c = decode[cartBody](t, f.do(t, http.MethodGet, "/api/cart", token, nil))
	assert.Zero(t, c.TotalItems)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	w := f.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"paymentMethod": "apple_pay",
	})

	require.Equal(t, http.StatusOK, w.Code)
	o := decode[orderBody](t, w)
	assert.Zero(t, o.Subtotal)
	assert.Zero(t, o.Tax)
	assert.Zero(t, o.Total)
	assert.Equal(t, "Guest", o.CustomerName)
	assert.Nil(t, o.CustomerEmail)
	assert.Equal(t, "Apple Pay", o.PaymentMethod)
}

func TestCheckout_UnknownMethod(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	w := f.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"paymentMethod": "crypto",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_SavesPaymentInfoWithoutCVV(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	w := f.do(t, http.MethodPost, "/api/checkout", token, map[string]any{
		"paymentMethod":   "card",
		"customerName":    "Stephanie",
		"customerEmail":   "steph@example.com",
		"cardNumber":      "4111111111111111",
		"expiryDate":      "06/28",
		"cvv":             "123",
		"savePaymentInfo": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	info := decode[paymentInfoBody](t, f.do(t, http.MethodGet, "/api/payment-info", token, nil))
	assert.Equal(t, "Stephanie", info.CustomerName)
	assert.Equal(t, "4111111111111111", info.CardNumber)
	assert.Equal(t, "06/28", info.ExpiryDate)
	assert.NotContains(t, w.Body.String(), "123\"", "cvv must not leak into responses")
}

func TestPaymentInfo_CRUD(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	// Nothing saved yet.
	w := f.do(t, http.MethodGet, "/api/payment-info", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/payment-info", token, map[string]string{
		"customerName":  "Stephanie",
		"customerEmail": "steph@example.com",
		"cardNumber":    "4111111111111111",
		"expiryDate":    "06/28",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	info := decode[paymentInfoBody](t, f.do(t, http.MethodGet, "/api/payment-info", token, nil))
	assert.Equal(t, "Stephanie", info.CustomerName)
	assert.Equal(t, "steph@example.com", info.CustomerEmail)

	w = f.do(t, http.MethodDelete, "/api/payment-info", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/api/payment-info", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogout_DropsSessionAndCart(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "cola-12oz"})

	w := f.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
