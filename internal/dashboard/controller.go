package dashboard

import (
	"context"
	"sync"
	"time"
)

// Controller owns the display state of one dashboard instance. Each Select
// starts a new generation; a load only lands if its generation is still the
// latest when it completes.
type Controller struct {
	loader  Loader
	metrics *Metrics

	mu       sync.Mutex
	gen      uint64
	active   string
	state    DisplayState
	cancel   context.CancelFunc
	lastUsed time.Time
	now      func() time.Time
}

// NewController constructs a controller with an empty state.
func NewController(loader Loader, metrics *Metrics) *Controller {
	c := &Controller{loader: loader, metrics: metrics, now: time.Now}
	c.state = Empty("")
	c.lastUsed = c.now()
	return c
}

// Select switches to viewID. Prior data is cleared before this returns and the
// fetch runs in the background, detached from ctx cancellation. The returned
// channel closes once that fetch has finished, whether or not it was applied.
func (c *Controller) Select(ctx context.Context, viewID string) <-chan struct{} {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.active = viewID
	c.state = Loading(viewID)
	c.lastUsed = c.now()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		state := c.loader.Load(fetchCtx, viewID)
		c.apply(gen, state)
	}()
	return done
}

// SelectAndWait selects viewID and waits for its load or for ctx to end,
// then returns whatever state is current at that moment.
func (c *Controller) SelectAndWait(ctx context.Context, viewID string) DisplayState {
	done := c.Select(ctx, viewID)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return c.State()
}

// State returns the current display state.
func (c *Controller) State() DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUsed = c.now()
	return c.state
}

// Active returns the id of the most recently selected view.
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close cancels any in-flight fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) apply(gen uint64, state DisplayState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.metrics.observeDiscard()
		return false
	}
	c.state = state
	c.cancel = nil
	return true
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}
