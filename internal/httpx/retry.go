// Package httpx wraps outbound HTTP calls with the bounded
// exponential-backoff retry policy every network edge in wardroom
// shares: client errors are terminal, server errors and transport
// failures are retried.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wardroom/internal/logging"
)

// Policy bounds the retry loop.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the first backoff step; attempt n waits
	// BaseDelay * 2^(n-1).
	BaseDelay time.Duration
}

// DefaultPolicy matches the assistant's stock behavior: two retries,
// one second base delay.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 2, BaseDelay: time.Second}
}

// StatusError is returned when every attempt ended in a server-side
// (>= 500) status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %s", e.Status)
}

// Bound on how much of a discarded body we read back for connection
// reuse.
const drainLimit = 1 << 20

// Do performs an HTTP call under the retry policy. build is invoked
// once per attempt so request bodies are fresh each time.
//
// A response with status in [200,400) is returned immediately. A
// response in [400,500) is also returned immediately with no retries:
// client errors are assumed non-transient and the caller inspects the
// status. A status >= 500 or a transport error is retryable; the
// backoff between attempts is BaseDelay * 2^attempt with no jitter,
// and the sleep respects ctx. When attempts are exhausted the last
// error is returned (a *StatusError if the final attempt produced a
// server-side status).
func Do(ctx context.Context, client *http.Client, build func() (*http.Request, error), p Policy) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay * time.Duration(1<<uint(attempt-1))
			logging.APIWarn("attempt %d failed (%v), retrying in %v", attempt, lastErr, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req = req.WithContext(ctx)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		switch {
		case resp.StatusCode < 400:
			return resp, nil

		case resp.StatusCode < 500:
			// Client errors are terminal; the caller owns the body.
			return resp, nil

		default:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
			drain(resp)
		}
	}

	return nil, lastErr
}

// drain consumes and closes the body of an abandoned attempt so the
// underlying connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	resp.Body.Close()
}

// Get fetches a URL under the policy.
func Get(ctx context.Context, client *http.Client, url string, p Policy) (*http.Response, error) {
	return Do(ctx, client, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}, p)
}

// PostJSON marshals payload once and POSTs it under the policy, with
// a fresh body reader per attempt.
func PostJSON(ctx context.Context, client *http.Client, url string, payload interface{}, p Policy) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return Do(ctx, client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, p)
}

// DecodeJSON reads and closes a response body into out, surfacing
// non-2xx statuses as errors with a short body excerpt.
func DecodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, drainLimit))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, excerpt)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
