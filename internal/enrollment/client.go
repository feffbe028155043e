// Package enrollment implements the HTTP client for the external face
// enrollment service. The service's recognition internals are opaque; this
// package only serializes requests and maps responses into typed results.
package enrollment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to one enrollment service instance.
type Client struct {
	Url       string
	parsedURL *url.URL
}

// New creates a client for the enrollment service at rawURL.
func New(rawURL string) (*Client, error) {
	apiURL := strings.TrimRight(rawURL, "/") + "/api/v1"
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid enrollment service URL: %w", err)
	}
	return &Client{Url: apiURL, parsedURL: parsed}, nil
}

// resolveURL builds a full URL from the base API URL and the given path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// readErrorBody reads the response body for error messages.
// Returns a placeholder if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

// Ping checks that the enrollment service is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL("health"), nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("enrollment service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("enrollment service unhealthy: status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	return nil
}
