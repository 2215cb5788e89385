package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

var (
	// ErrUnauthenticated is returned when the auth service rejects a token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRestaurantNotFound is returned when the restaurant service does not
	// know the restaurant.
	ErrRestaurantNotFound = errors.New("restaurant not found")

	// ErrUpstreamUnavailable is returned when a collaborator cannot be
	// reached or answers with an unexpected status.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// maxErrorBody caps how much of an error response is kept for logs.
const maxErrorBody = 512

// NewHTTPClient returns a client bounded by timeout whose requests are
// recorded as New Relic external segments.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newrelic.NewRoundTripper(http.DefaultTransport),
	}
}

// statusError describes a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// doJSON sends in as a JSON body (when non-nil) and decodes a 2xx response
// into out (when non-nil). Transport failures are wrapped with
// ErrUpstreamUnavailable; non-2xx responses come back as *statusError.
func doJSON(ctx context.Context, client *http.Client, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUpstreamUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUpstreamUnavailable, url, err)
	}

	return nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
