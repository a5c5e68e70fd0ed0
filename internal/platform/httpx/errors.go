// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors mapped onto problem responses.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrUnavailable = errors.New("dependency unavailable")
	ErrRateLimited = errors.New("rate limited")
)

// RespondError maps err to an RFC7807 response. detail is the only text the
// client sees; err itself stays server-side.
func RespondError(w http.ResponseWriter, err error, detail string) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", detail)
	case errors.Is(err, ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
