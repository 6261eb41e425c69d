package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
)

// RateLimitConfig configures the fixed-window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the counting window duration.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. Nil means client IP.
	KeyFunc func(*http.Request) string
}

// window is one client's counter for the current window.
type window struct {
	count int
	start time.Time
}

// rateLimiter counts requests per key in fixed windows. The counter resets
// when the window rolls over, so a burst straddling the boundary can see up
// to 2x Max; for a demo storefront that trade-off beats the bookkeeping of a
// sliding window.
type rateLimiter struct {
	max    int
	span   time.Duration
	keyFor func(*http.Request) string
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	keyFor := cfg.KeyFunc
	if keyFor == nil {
		keyFor = clientIP
	}
	return &rateLimiter{
		max:     cfg.Max,
		span:    cfg.Window,
		keyFor:  keyFor,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// take consumes one slot for key. It reports the remaining quota, when the
// window resets, and whether the request may proceed.
func (rl *rateLimiter) take(key string) (remaining int, resetAt time.Time, ok bool) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	win, exists := rl.windows[key]
	if !exists || now.Sub(win.start) >= rl.span {
		win = &window{start: now}
		rl.windows[key] = win
	}
	resetAt = win.start.Add(rl.span)

	if win.count >= rl.max {
		return 0, resetAt, false
	}
	win.count++
	return rl.max - win.count, resetAt, true
}

// evictStale drops windows that ended before now.
func (rl *rateLimiter) evictStale(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, win := range rl.windows {
		if now.Sub(win.start) >= rl.span {
			delete(rl.windows, key)
		}
	}
}

// RateLimit returns a per-key rate limiting middleware. Rejected requests get
// 429 with a JSON body; every response carries X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limitWith(newRateLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a background goroutine that evicts
// idle client windows until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.evictStale(now)
			}
		}
	}()
	return limitWith(rl)
}

func limitWith(rl *rateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := rl.take(rl.keyFor(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := int(time.Until(resetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				var e jx.Encoder
				e.ObjStart()
				e.FieldStart("code")
				e.Int(http.StatusTooManyRequests)
				e.FieldStart("message")
				e.Str("rate limit exceeded")
				e.ObjEnd()
				_, _ = w.Write(e.Bytes())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the client address: first hop of X-Forwarded-For, then
// X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
