package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(t *testing.T, h http.Handler, remoteAddr string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := hit(t, h, "192.0.2.1:1000", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	w := hit(t, h, "192.0.2.1:1000", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_Headers(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 10, Window: time.Minute})(okHandler())

	w := hit(t, h, "192.0.2.2:1000", nil)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.1:1", nil).Code)
	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.2:1", nil).Code)
	// Port changes do not change the key.
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "10.0.0.1:2", nil).Code)
}

func TestRateLimit_WindowRollover(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	h := limitWith(rl)(okHandler())

	require.Equal(t, http.StatusOK, hit(t, h, "10.0.0.9:1", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(t, h, "10.0.0.9:1", nil).Code)

	rl.now = func() time.Time { return base.Add(time.Minute) }
	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.9:1", nil).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Session-Token")
		},
	})(okHandler())

	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.1:1", map[string]string{"X-Session-Token": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "10.0.0.1:1", map[string]string{"X-Session-Token": "a"}).Code)
	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.1:1", map[string]string{"X-Session-Token": "b"}).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	fwd := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}
	assert.Equal(t, http.StatusOK, hit(t, h, "192.0.2.1:1", fwd).Code)
	// Same forwarded client behind a different proxy address is still limited.
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "192.0.2.2:1", fwd).Code)
}

func TestRateLimiter_EvictStale(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	_, _, ok := rl.take("client")
	require.True(t, ok)
	require.Len(t, rl.windows, 1)

	rl.evictStale(base.Add(30 * time.Second))
	assert.Len(t, rl.windows, 1, "live window must survive")

	rl.evictStale(base.Add(2 * time.Minute))
	assert.Empty(t, rl.windows)
}
