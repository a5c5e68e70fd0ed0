package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/ttl-analytics/insights-dashboard/internal/backend"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

// User-facing messages. Failure detail only goes to the logs.
const (
	MsgUnknownView = "Unknown filter selected."
	MsgLoadFailed  = "Failed to load insights. See console for details."
)

// ErrorKind classifies why a load failed.
type ErrorKind string

const (
	KindUnknownView       ErrorKind = "unknown_view"
	KindTransportFailure  ErrorKind = "transport_failure"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindUnexpectedFailure ErrorKind = "unexpected_failure"
)

// LoadError records a failed load attempt together with its cause.
type LoadError struct {
	Kind ErrorKind
	View string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("dashboard: load %q: %s: %v", e.View, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// UserMessage collapses the error kind to the message shown on screen.
func (e *LoadError) UserMessage() string {
	if e != nil && e.Kind == KindUnknownView {
		return MsgUnknownView
	}
	return MsgLoadFailed
}

var errPanic = errors.New("dashboard: recovered panic")

func classify(view string, err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	kind := KindUnexpectedFailure
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, views.ErrUnknownView):
		kind = KindUnknownView
	case errors.Is(err, backend.ErrDecode):
		kind = KindMalformedResponse
	case errors.Is(err, backend.ErrStatus),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		kind = KindTransportFailure
	}
	return &LoadError{Kind: kind, View: view, Err: err}
}
