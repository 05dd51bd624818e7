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

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window. Zero disables the
	// limiter.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc extracts the limiter key. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// Decision is the outcome of Limiter.Allow.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	start    time.Time
	count    float64
	previous float64
}

// Limiter approximates a sliding window by weighting the previous fixed
// window's count by its overlap with the current one.
type Limiter struct {
	max    int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a Limiter allowing max requests per period and key.
func NewLimiter(max int, period time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		period:  period,
		windows: make(map[string]*window),
	}
}

// Allow records a request for key at now if it fits in the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{start: now}
		l.windows[key] = w
	}
	if since := now.Sub(w.start); since >= l.period {
		w.previous = w.count
		if since >= 2*l.period {
			w.previous = 0
		}
		w.count = 0
		w.start = now.Truncate(l.period)
	}

	overlap := 1 - now.Sub(w.start).Seconds()/l.period.Seconds()
	used := w.previous*math.Max(overlap, 0) + w.count
	d := Decision{ResetAt: w.start.Add(l.period)}
	if used >= float64(l.max) {
		return d
	}

	w.count++
	d.Allowed = true
	d.Remaining = max(int(float64(l.max)-used-1), 0)
	return d
}

// Evict drops keys idle for two full windows.
func (l *Limiter) Evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.period {
			delete(l.windows, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// RateLimit limits requests per key and answers 429 with the API error body
// once the limit is hit. Every response carries the X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return limit(NewLimiter(cfg.Max, cfg.Window), cfg.KeyFunc)
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle keys
// every two windows until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return RateLimit(cfg)
	}
	l := NewLimiter(cfg.Max, cfg.Window)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Evict(now)
			}
		}
	}()
	return limit(l, cfg.KeyFunc)
}

func limit(l *Limiter, keyFunc func(*http.Request) string) Middleware {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	limitHeader := strconv.Itoa(l.max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			d := l.Allow(keyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := max(d.ResetAt.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
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
