package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window holds the counts of the current and previous fixed windows. The
// sliding count weights the previous window by its remaining overlap.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

// Limiter is a per-key sliding window rate limiter.
type Limiter struct {
	max    int
	size   time.Duration
	keyFor func(*http.Request) string

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	keyFor := cfg.KeyFunc
	if keyFor == nil {
		keyFor = ClientIP
	}
	return &Limiter{
		max:     cfg.Max,
		size:    cfg.Window,
		keyFor:  keyFor,
		windows: make(map[string]*window),
	}
}

// Allow records a hit for key at now. It reports whether the hit is within
// the limit, how many hits remain and when the current window ends.
func (l *Limiter) Allow(key string, now time.Time) (ok bool, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.windows[key]
	if !found {
		w = &window{start: now.Truncate(l.size)}
		l.windows[key] = w
	}
	if elapsed := now.Sub(w.start); elapsed >= l.size {
		if elapsed >= 2*l.size {
			w.prev = 0
		} else {
			w.prev = w.curr
		}
		w.curr = 0
		w.start = now.Truncate(l.size)
	}

	overlap := max(0, 1-now.Sub(w.start).Seconds()/l.size.Seconds())
	count := w.prev*overlap + w.curr
	reset = w.start.Add(l.size)
	if count >= float64(l.max) {
		return false, 0, reset
	}
	w.curr++
	return true, max(0, int(float64(l.max)-count-1)), reset
}

// Sweep drops keys idle for two full windows.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) sweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// Middleware rejects requests over the limit with 429 and the API error
// envelope. X-RateLimit-* headers are set on every response.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			ok, remaining, reset := l.Allow(l.keyFor(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(max(0, reset.Sub(now).Seconds())))))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit returns a rate limiting middleware without background eviction.
func RateLimit(cfg RateLimitConfig) Middleware {
	return NewLimiter(cfg).Middleware()
}

// RateLimitWithCleanup is RateLimit with stale keys swept every two windows
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg)
	go l.sweepEvery(ctx, 2*cfg.Window)
	return l.Middleware()
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP or the remote
// address host, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
