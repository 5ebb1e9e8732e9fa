// Package ratelimit gates inbound download requests. Per-client state
// is an in-process sliding window of accepted timestamps; nothing is
// persisted and the gate is best-effort, not strict.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	// Ceiling is the maximum accepted requests per client inside Window.
	Ceiling int
	Window  time.Duration
	// MinInterval rejects a client whose previous accepted request is
	// more recent than this, independent of the window count.
	MinInterval time.Duration
}

// DefaultConfig returns the production or development policy. Values
// are tuning, not correctness; the shape of the policy is what matters.
func DefaultConfig(production bool) Config {
	if production {
		return Config{Ceiling: 5, Window: 2 * time.Hour, MinInterval: 10 * time.Second}
	}
	return Config{Ceiling: 30, Window: 10 * time.Minute, MinInterval: time.Second}
}

// Limiter holds one sliding window per client identifier.
type Limiter struct {
	cfg   Config
	clock func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		clock:   time.Now,
		windows: make(map[string][]time.Time),
	}
}

// SetClock replaces the time source. Tests only.
func (l *Limiter) SetClock(clock func() time.Time) { l.clock = clock }

// Allow decides whether clientID may proceed now. On rejection the
// returned duration is the earliest wait after which a retry could
// succeed. Accepted requests are recorded immediately.
func (l *Limiter) Allow(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	window := l.prune(clientID, now)

	if n := len(window); n > 0 {
		last := window[n-1]
		if since := now.Sub(last); since < l.cfg.MinInterval {
			l.windows[clientID] = window
			return false, l.cfg.MinInterval - since
		}
		if n >= l.cfg.Ceiling {
			l.windows[clientID] = window
			// Oldest entry ages out first.
			return false, window[0].Add(l.cfg.Window).Sub(now)
		}
	}

	l.windows[clientID] = append(window, now)
	return true, 0
}

// prune drops timestamps older than the window and deletes clients with
// nothing recent, keeping the table from growing unbounded.
func (l *Limiter) prune(clientID string, now time.Time) []time.Time {
	window := l.windows[clientID]
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	window = window[i:]
	if len(window) == 0 {
		delete(l.windows, clientID)
		return nil
	}
	return window
}

// GlobalMiddleware applies one token-bucket limiter across all inbound
// traffic, in front of the per-client gate.
func GlobalMiddleware(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"error":"server is busy, retry shortly"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
