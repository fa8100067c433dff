// Package httpfetch implements ports.Fetcher over net/http.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedingest/internal/ports"
)

const defaultUserAgent = "feedingest/1.0"

// Client fetches page bodies over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
}

var _ ports.Fetcher = (*Client)(nil)

// New builds a fetcher; a nil client gets a 30 second timeout default.
func New(client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: client, userAgent: defaultUserAgent}
}

// FetchBody retrieves the response body of url. Non-2xx statuses are errors;
// retrying is the caller's concern.
func (c *Client) FetchBody(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return string(body), nil
}
