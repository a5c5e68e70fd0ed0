// Package views holds the registry of dashboard views and the backend
// endpoint each one is bound to.
package views

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies which transform a view's payload goes through.
type Kind string

const (
	// KindKPI views pass the payload through as a KPI snapshot.
	KindKPI Kind = "kpi"
	// KindAIInsights views split a narrative string into insight items.
	KindAIInsights Kind = "ai-insights"
)

// Built-in view identifiers.
const (
	IDKPI        = "kpi"
	IDAIInsights = "ai-insights"
)

// ErrUnknownView is returned when a view id is not registered.
var ErrUnknownView = errors.New("views: unknown view")

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindKPI || k == KindAIInsights
}

// Descriptor binds a view id to its endpoint and label.
type Descriptor struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Endpoint string `json:"endpoint"`
	Label    string `json:"label"`
}

// Registry is an immutable, ordered set of view descriptors.
type Registry struct {
	order []string
	byID  map[string]Descriptor
}

// DefaultDescriptors returns the built-in views against baseURL.
func DefaultDescriptors(baseURL string) ([]Descriptor, error) {
	kpi, err := JoinEndpoint(baseURL, "/kpi-all")
	if err != nil {
		return nil, err
	}
	ai, err := JoinEndpoint(baseURL, "/ai-insights")
	if err != nil {
		return nil, err
	}
	return []Descriptor{
		{ID: IDKPI, Kind: KindKPI, Endpoint: kpi, Label: "KPI"},
		{ID: IDAIInsights, Kind: KindAIInsights, Endpoint: ai, Label: "AI Insights"},
	}, nil
}

// NewRegistry builds a registry from descriptors, keeping their order.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, errors.New("views: descriptor id required")
		}
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("views: %s: unsupported kind %q", d.ID, d.Kind)
		}
		if _, err := url.ParseRequestURI(d.Endpoint); err != nil {
			return nil, fmt.Errorf("views: %s: invalid endpoint: %w", d.ID, err)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("views: duplicate view id %q", d.ID)
		}
		if d.Label == "" {
			d.Label = d.ID
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// Resolve returns the descriptor registered under id.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	if r == nil {
		return Descriptor{}, ErrUnknownView
	}
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownView, id)
	}
	return d, nil
}

// List returns the descriptors in registration order.
func (r *Registry) List() []Descriptor {
	if r == nil {
		return nil
	}
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, err := r.Resolve(id)
	return err == nil
}

// JoinEndpoint appends path to the base host URL.
func JoinEndpoint(baseURL, path string) (string, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("views: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("views: base url %q must be absolute", baseURL)
	}
	return base.JoinPath(path).String(), nil
}
