// Package httputil provides HTTP helpers shared by the platform and LLM clients.
package httputil

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff delay after a throttled response.
// Tests lower it to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// MaxRetryDelay caps both the exponential backoff and any Retry-After hint
var MaxRetryDelay = 10 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes req and retries on 429 Too Many Requests and
// 503 Service Unavailable with exponential backoff: RetryBaseDelay, then
// double each attempt, capped at MaxRetryDelay. A Retry-After header in
// seconds replaces the computed delay.
//
// maxRetries <= 0 uses the default of 3. Requests with a body must have
// GetBody set (http.NewRequest does this for common body types) so the body
// can be replayed. After the last retry the throttled response is returned
// as-is for the caller to inspect.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		delay := backoff(attempt, resp.Header.Get("Retry-After"))

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Printf("[HTTP] %s %s returned %d, retrying in %v (attempt %d/%d)",
			req.Method, req.URL.Host, resp.StatusCode, delay, attempt+1, maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// backoff returns the delay before retry number attempt+1
func backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, MaxRetryDelay)
	}
	return min(RetryBaseDelay<<attempt, MaxRetryDelay)
}
