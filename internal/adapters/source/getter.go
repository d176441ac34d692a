// Package source retrieves the JHU CSSE daily report, walking back a few days
// when the newest file is not published yet.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 15 * time.Second

// Getter retrieves a resource body. Implementations return an error wrapping
// ErrNotFound when the resource does not exist.
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPGetter is a Getter backed by net/http.
type HTTPGetter struct {
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOption applies a configuration option to the HTTPGetter.
type HTTPOption func(*HTTPGetter)

// WithTimeout bounds each request, body included.
func WithTimeout(d time.Duration) HTTPOption {
	return func(g *HTTPGetter) {
		if d > 0 {
			g.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGetter) {
		if c != nil {
			g.client = c
		}
	}
}

// WithRateLimit caps upstream requests per minute. Zero or less means no cap.
// The burst allows one full fallback walk of burst requests at once.
func WithRateLimit(perMinute, burst int) HTTPOption {
	return func(g *HTTPGetter) {
		if perMinute <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// NewHTTPGetter creates an HTTPGetter with a 15s timeout and no rate cap.
func NewHTTPGetter(opts ...HTTPOption) *HTTPGetter {
	g := &HTTPGetter{
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get issues a GET and returns the body on 2xx. A 404 maps to ErrNotFound and
// any other status to ErrUpstreamStatus.
func (g *HTTPGetter) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: %d", ErrUpstreamStatus, url, resp.StatusCode)
	}
	return resp.Body, nil
}
