// Package backend talks to the analytics service that produces KPI and
// AI-insight payloads.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

var (
	// ErrStatus marks a non-2xx response.
	ErrStatus = errors.New("backend: unexpected status")
	// ErrDecode marks a body that is not valid JSON.
	ErrDecode = errors.New("backend: invalid json")
)

// StatusError carries the status line of a failed response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %s", e.Endpoint, e.Status)
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error { return ErrStatus }

// Client wraps interactions with the analytics backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client. A zero timeout leaves requests bounded only
// by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping checks that the backend root answers with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, c.baseURL+"/")
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: c.baseURL + "/", StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

// FetchJSON issues one uncached GET to endpoint and returns the raw JSON body.
func (c *Client) FetchJSON(ctx context.Context, endpoint string) (json.RawMessage, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(body), 512),
		}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w from %s", ErrDecode, endpoint)
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	// Every request must observe live server state.
	req.Header.Set("Cache-Control", "no-cache, no-store, max-age=0")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.httpClient.Do(req)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
