// Package enrichment fills in author details and a narration for new books
// from an encyclopedia summary, a chat-completion model and a speech model.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mrlokans/bookclub/internal/ratelimit"
)

const userAgent = "BookClub/1.0 (book enrichment)"

var (
	ErrNotFound = errors.New("no result from provider")
	ErrDisabled = errors.New("provider not configured")
)

// StatusError is an unexpected HTTP status from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, 429 and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// httpClient is the transport shared by the providers. Each request waits on
// the limiter bucket of its host.
type httpClient struct {
	provider string
	client   *http.Client
	limiter  *ratelimit.KeyedRateLimiter
}

func newHTTPClient(provider string, timeout time.Duration, limiter *ratelimit.KeyedRateLimiter) *httpClient {
	return &httpClient{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

// do sends req and returns the response body for a 200, a StatusError otherwise.
func (c *httpClient) do(req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context(), hostKey(req.URL)); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

func hostKey(u *url.URL) string {
	return u.Host
}
