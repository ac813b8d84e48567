package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// throttlingServer answers the first n requests with status, then 200
func throttlingServer(t *testing.T, n int32, status int, calls *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(calls, 1) <= n {
			w.WriteHeader(status)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		throttled  int32
		status     int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"immediate success", 0, http.StatusTooManyRequests, 3, http.StatusOK, 1},
		{"recovers after 429s", 2, http.StatusTooManyRequests, 3, http.StatusOK, 3},
		{"recovers after 503", 1, http.StatusServiceUnavailable, 3, http.StatusOK, 2},
		{"gives up after max retries", 10, http.StatusTooManyRequests, 2, http.StatusTooManyRequests, 3},
		{"zero uses default retries", 10, http.StatusTooManyRequests, 0, http.StatusTooManyRequests, 4},
		{"other errors are not retried", 10, http.StatusInternalServerError, 3, http.StatusInternalServerError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := throttlingServer(t, tt.throttled, tt.status, &calls)

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetry_ReplaysBody(t *testing.T) {
	var calls int32
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"item":"atta"}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 3)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{`{"item":"atta"}`, `{"item":"atta"}`}, bodies)
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	saved := RetryBaseDelay
	RetryBaseDelay = time.Second
	defer func() { RetryBaseDelay = saved }()

	var calls int32
	ts := throttlingServer(t, 10, http.StatusTooManyRequests, &calls)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBackoff(t *testing.T) {
	saved := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = saved }()

	tests := []struct {
		name       string
		attempt    int
		retryAfter string
		want       time.Duration
	}{
		{"first attempt", 0, "", 500 * time.Millisecond},
		{"doubles", 2, "", 2 * time.Second},
		{"capped", 10, "", MaxRetryDelay},
		{"retry-after seconds", 0, "3", 3 * time.Second},
		{"retry-after capped", 0, "3600", MaxRetryDelay},
		{"unparsable retry-after ignored", 1, "soon", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backoff(tt.attempt, tt.retryAfter))
		})
	}
}
