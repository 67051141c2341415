package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Cooldown enforces a fixed window between accepted actions per key. The
// window starts on acceptance, not on attempt: rejected input never burns
// the client's window.
type Cooldown struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	c := &Cooldown{
		lastSeen: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
	go c.sweep()
	return c
}

// Mark starts a new window for the key.
func (c *Cooldown) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen[key] = c.now()
}

// Remaining returns how long the key must still wait, zero when clear.
func (c *Cooldown) Remaining(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, exists := c.lastSeen[key]
	if !exists {
		return 0
	}
	remaining := c.window - c.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Cooldown) sweep() {
	for {
		time.Sleep(5 * time.Minute)
		c.mu.Lock()
		for key, last := range c.lastSeen {
			if c.now().Sub(last) > c.window {
				delete(c.lastSeen, key)
			}
		}
		c.mu.Unlock()
	}
}

type commitKey struct{}

// Middleware denies clients still inside their window. It never starts
// one itself; the handler calls Commit once the action is accepted.
func (c *Cooldown) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if remaining := c.Remaining(key); remaining > 0 {
			retryAfter := int(remaining.Seconds()) + 1
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"cooldown active","retryAfterSeconds":%d}`, retryAfter)
			return
		}

		ctx := context.WithValue(r.Context(), commitKey{}, func() { c.Mark(key) })
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Commit starts the cooldown window carried by the request context, if any.
func Commit(ctx context.Context) {
	if fn, ok := ctx.Value(commitKey{}).(func()); ok {
		fn()
	}
}

// clientKey identifies the client by address: the first forwarded hop when
// a proxy is in front, otherwise the peer host without the ephemeral port.
func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return forwarded
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
