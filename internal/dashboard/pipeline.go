package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ttl-analytics/insights-dashboard/internal/backend"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

// Resolver looks up a view descriptor by id.
type Resolver interface {
	Resolve(id string) (views.Descriptor, error)
}

// Fetcher performs the single uncached GET for a view endpoint.
type Fetcher interface {
	FetchJSON(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// Loader produces the display state for a view id.
type Loader interface {
	Load(ctx context.Context, viewID string) DisplayState
}

// Pipeline resolves, fetches and normalises one view.
type Pipeline struct {
	resolver Resolver
	fetcher  Fetcher
	logger   *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
	now      func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithMetrics records load outcomes.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTimeout bounds each fetch. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithClock overrides the clock used to stamp insight items.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

// NewPipeline wires the registry and backend fetcher.
func NewPipeline(resolver Resolver, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		resolver: resolver,
		fetcher:  fetcher,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load runs one view load and always returns a terminal state. Failures are
// logged with their full cause and surfaced only as the generic message.
func (p *Pipeline) Load(ctx context.Context, viewID string) DisplayState {
	state, _ := p.LoadDetailed(ctx, viewID)
	return state
}

// LoadDetailed is Load that also returns the classified failure, if any.
func (p *Pipeline) LoadDetailed(ctx context.Context, viewID string) (DisplayState, *LoadError) {
	start := time.Now()
	descriptor, err := p.resolver.Resolve(viewID)
	if err != nil {
		le := classify(viewID, err)
		p.logger.Warn("resolve view", slog.String("view", viewID), slog.String("kind", string(le.Kind)), slog.Any("error", err))
		p.metrics.observeLoad(unknownView, string(le.Kind), time.Since(start))
		return Failed(viewID, le.UserMessage()), le
	}

	state, err := p.fetchAndTransform(ctx, descriptor)
	if err != nil {
		le := classify(viewID, err)
		attrs := []any{
			slog.String("view", viewID),
			slog.String("endpoint", descriptor.Endpoint),
			slog.String("kind", string(le.Kind)),
			slog.Any("error", err),
		}
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			attrs = append(attrs, slog.Int("status", statusErr.StatusCode), slog.String("body", statusErr.Body))
		}
		p.logger.Error("load view", attrs...)
		p.metrics.observeLoad(viewID, string(le.Kind), time.Since(start))
		return Failed(viewID, le.UserMessage()), le
	}

	outcome := outcomeOK
	if state.Kind == StateEmpty {
		outcome = outcomeEmpty
	}
	p.metrics.observeLoad(viewID, outcome, time.Since(start))
	return state, nil
}

func (p *Pipeline) fetchAndTransform(ctx context.Context, d views.Descriptor) (state DisplayState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.fetcher.FetchJSON(ctx, d.Endpoint)
	if err != nil {
		return DisplayState{}, err
	}
	return p.transform(d, raw)
}

func (p *Pipeline) transform(d views.Descriptor, raw json.RawMessage) (DisplayState, error) {
	switch d.Kind {
	case views.KindKPI:
		snapshot := DecodeKPI(raw)
		if snapshot == nil {
			return Empty(d.ID), nil
		}
		return ShowingKPI(d.ID, snapshot), nil
	case views.KindAIInsights:
		excerpt, items := decodeInsights(raw, d.ID, p.now())
		if excerpt == nil && len(items) == 0 {
			return Empty(d.ID), nil
		}
		return ShowingInsights(d.ID, excerpt, items), nil
	default:
		return DisplayState{}, fmt.Errorf("dashboard: view %q has unsupported kind %q", d.ID, d.Kind)
	}
}
