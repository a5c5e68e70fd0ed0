package dashboard

import (
	"context"
	"sync"
	"time"
)

// Hub keeps one Controller per browser session.
type Hub struct {
	loader  Loader
	metrics *Metrics
	idle    time.Duration
	limit   int
	now     func() time.Time

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewHub constructs a hub. Controllers unused for longer than idle are
// dropped by Sweep; a non-positive idle disables eviction.
func NewHub(loader Loader, metrics *Metrics, idle time.Duration) *Hub {
	return &Hub{
		loader:      loader,
		metrics:     metrics,
		idle:        idle,
		now:         time.Now,
		controllers: make(map[string]*Controller),
	}
}

// SetLimit caps how many controllers the hub holds. Creating one past the cap
// evicts the least recently used controller. A non-positive n removes the cap.
func (h *Hub) SetLimit(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limit = n
}

// Controller returns the controller bound to key, creating it on first use.
func (h *Hub) Controller(key string) *Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.controllers[key]
	if !ok {
		if h.limit > 0 {
			for len(h.controllers) >= h.limit {
				h.evictOldest()
			}
		}
		c = NewController(h.loader, h.metrics)
		c.now = h.now
		c.lastUsed = h.now()
		h.controllers[key] = c
	}
	return c
}

// Lookup returns the controller bound to key without creating one.
func (h *Hub) Lookup(key string) (*Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.controllers[key]
	return c, ok
}

// Len reports how many controllers are live.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.controllers)
}

// Sweep removes idle controllers and returns how many were dropped.
func (h *Hub) Sweep() int {
	if h.idle <= 0 {
		return 0
	}
	cutoff := h.now().Add(-h.idle)
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for key, c := range h.controllers {
		if c.idleSince().Before(cutoff) {
			c.Close()
			delete(h.controllers, key)
			removed++
		}
	}
	return removed
}

// evictOldest drops the least recently used controller. h.mu must be held.
func (h *Hub) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, c := range h.controllers {
		if used := c.idleSince(); !found || used.Before(oldest) {
			oldestKey, oldest, found = key, used, true
		}
	}
	if !found {
		return
	}
	h.controllers[oldestKey].Close()
	delete(h.controllers, oldestKey)
	h.metrics.observeEviction()
}

// Run sweeps on every interval tick until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}
