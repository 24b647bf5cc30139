// Package http wraps the stdlib client for outbound API calls. Every call in
// the fleet already runs under a per-job context, so the client timeout is a
// backstop against requests that outlive their job.
package http

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds requests when the caller passes no timeout. It must
// exceed the longest per-job timeout so the job context, not the transport,
// decides when to give up.
const DefaultTimeout = 60 * time.Second

type Client struct {
	httpClient *http.Client
}

// NewClient returns a client with the given overall timeout. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext binds the request to ctx so callers can cancel mid-flight.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}
