// Package netutil holds the HTTP transport helpers shared by the backend API
// client and the ledger poller.
package netutil

import (
	"net/http"
	"strconv"
	"time"
)

// RetryTransport wraps an http.RoundTripper with retry logic for transient
// upstream failures. Only idempotent methods are retried; POST is sent once.
// Backoff is exponential and honors Retry-After.
type RetryTransport struct {
	// Base is the underlying transport.
	// Default: http.DefaultTransport if nil.
	Base http.RoundTripper

	// OnRetry is called before each retry attempt with the 1-based attempt
	// number, the wait, and the status that triggered it (0 for network errors).
	OnRetry func(attempt int, waitDuration time.Duration, statusCode int)

	// MaxRetries is the maximum number of retry attempts.
	// Default: 2 if zero. Negative disables retries.
	MaxRetries int

	// InitialBackoff is the initial backoff duration.
	// Default: 500ms if zero.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 10s if zero.
	MaxBackoff time.Duration
}

// RoundTrip implements http.RoundTripper with retry logic.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	maxRetries := t.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = 2
	case maxRetries < 0:
		maxRetries = 0
	}
	if !IsIdempotent(req.Method) {
		maxRetries = 0
	}

	initialBackoff := t.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = 500 * time.Millisecond
	}

	maxBackoff := t.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 10 * time.Second
	}

	for attempt := 0; ; attempt++ {
		reqClone := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			reqClone.Body = body
		}

		resp, err := base.RoundTrip(reqClone)
		if attempt >= maxRetries {
			return resp, err
		}

		var wait time.Duration
		status := 0
		switch {
		case err != nil:
			wait = backoff(attempt, initialBackoff, maxBackoff, nil)
		case IsRetryableStatus(resp.StatusCode):
			status = resp.StatusCode
			wait = backoff(attempt, initialBackoff, maxBackoff, resp)
			_ = resp.Body.Close()
		default:
			return resp, nil
		}

		if t.OnRetry != nil {
			t.OnRetry(attempt+1, wait, status)
		}

		timer := time.NewTimer(wait)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

// backoff determines the wait before the next attempt, preferring the
// server's Retry-After when present.
func backoff(attempt int, initial, maxDuration time.Duration, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				return min(time.Duration(seconds)*time.Second, maxDuration)
			}
			if at, err := http.ParseTime(retryAfter); err == nil {
				d := time.Until(at)
				if d < 0 {
					return initial
				}
				return min(d, maxDuration)
			}
		}
	}

	return min(initial*(1<<attempt), maxDuration)
}

// IsRetryableStatus reports whether a status code indicates a transient
// upstream error: 429, 502, 503 or 504.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsIdempotent reports whether requests with method may be replayed.
func IsIdempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
