package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangu/backend/internal/domain"
	"github.com/gangu/backend/internal/infrastructure/httputil"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		Name:          "Zepto",
		BaseURL:       baseURL,
		APIKey:        "test-api-key",
		RatePerSecond: 100,
	})
}

func TestNewClient(t *testing.T) {
	client := newTestClient("https://api.example.com/")

	assert.NotNil(t, client)
	assert.Equal(t, "zepto", client.Name())
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := newTestClient("https://api.example.com")

	assert.False(t, client.debug)

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "toor dal", r.URL.Query().Get("q"))
		assert.Equal(t, "1kg", r.URL.Query().Get("quantity"))
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"id": 101, "title": "Tata Sampann Toor Dal", "selling_price": "₹110", "mrp": 130,
			 "pack_size": "1 kg", "eta": "12 mins", "rating": 4.3, "rating_count": "2.1k", "in_stock": true},
			{"id": 102, "price": 80}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	listings, err := client.Search(context.Background(), domain.SearchQuery{Item: "toor dal", Quantity: "1kg"})

	require.NoError(t, err)
	require.Len(t, listings, 1) // nameless entry dropped
	got := listings[0]
	assert.Equal(t, "zepto", got.Platform)
	assert.Equal(t, "101", got.ProductID)
	assert.Equal(t, "Tata Sampann Toor Dal", got.ItemName)
	assert.Equal(t, domain.Value("₹110"), got.Price)
	assert.Equal(t, domain.Value("1 kg"), got.Quantity)
	assert.Equal(t, domain.Value("12 mins"), got.DeliveryTime)
	assert.Equal(t, domain.Value("2.1k"), got.ReviewsCount)
	require.NotNil(t, got.Availability)
	assert.True(t, *got.Availability)
}

func TestSearch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	listings, err := newTestClient(server.URL).Search(context.Background(), domain.SearchQuery{Item: "unobtainium"})

	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestSearch_ServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	listings, err := newTestClient(server.URL).Search(context.Background(), domain.SearchQuery{Item: "atta"})

	assert.Nil(t, listings)
	assert.ErrorIs(t, err, domain.ErrPlatformFailure)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, 1, attempts) // only 429 and 503 are retried
}

func TestSearch_TooManyRequests_Retries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name": "Aashirvaad Atta 5kg", "price": 245}]`))
	}))
	defer server.Close()

	listings, err := newTestClient(server.URL).Search(context.Background(), domain.SearchQuery{Item: "atta"})

	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Aashirvaad Atta 5kg", listings[0].ItemName)
	assert.Equal(t, 3, attempts)
}

func TestSearch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	listings, err := newTestClient(server.URL).Search(context.Background(), domain.SearchQuery{Item: "atta"})

	assert.Nil(t, listings)
	assert.ErrorIs(t, err, domain.ErrPlatformFailure)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestSearch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	listings, err := newTestClient(server.URL).Search(ctx, domain.SearchQuery{Item: "atta"})

	assert.Nil(t, listings)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearch_RequestCreationError(t *testing.T) {
	client := newTestClient("://invalid-url")

	listings, err := client.Search(context.Background(), domain.SearchQuery{Item: "atta"})

	assert.Nil(t, listings)
	assert.Error(t, err)
}

func TestPlaceOrder_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req domain.OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "P-1", req.ProductID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_id": "ZP-9001", "final_price": 110, "estimated_delivery": "12 mins"}`))
	}))
	defer server.Close()

	confirmation, err := newTestClient(server.URL).PlaceOrder(context.Background(), domain.OrderRequest{
		IdempotencyKey: "key-123",
		Platform:       "zepto",
		ProductID:      "P-1",
		ItemName:       "Toor Dal",
		Quantity:       1,
		ExpectedPrice:  110,
	})

	require.NoError(t, err)
	assert.Equal(t, "ZP-9001", confirmation.OrderID)
	assert.Equal(t, "zepto", confirmation.Platform)
	assert.Equal(t, 110.0, confirmation.FinalPrice)
}

func TestPlaceOrder_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"conflict is a duplicate", http.StatusConflict, `{}`, domain.ErrDuplicateOrder},
		{"rejected order", http.StatusUnprocessableEntity, `{"error": "out of stock"}`, domain.ErrPlatformFailure},
		{"missing order id", http.StatusOK, `{"final_price": 10}`, domain.ErrPlatformFailure},
		{"garbage body", http.StatusOK, `<html>`, domain.ErrPlatformFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			confirmation, err := newTestClient(server.URL).PlaceOrder(context.Background(), domain.OrderRequest{
				IdempotencyKey: "key",
				ItemName:       "Atta",
			})

			assert.Nil(t, confirmation)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPlaceOrder_RetryReplaysBody(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"item_name":"Atta"`)
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"order_id": "BK-1"}`))
	}))
	defer server.Close()

	confirmation, err := newTestClient(server.URL).PlaceOrder(context.Background(), domain.OrderRequest{
		IdempotencyKey: "key",
		ItemName:       "Atta",
	})

	require.NoError(t, err)
	assert.Equal(t, "BK-1", confirmation.OrderID)
	assert.Equal(t, 2, attempts)
}

func TestDebugLog(t *testing.T) {
	client := newTestClient("https://api.example.com")

	// Should not panic either way
	client.debug = false
	client.debugLog("test message %s", "arg")

	client.debug = true
	client.debugLog("test message %s", "arg")
}

func TestReadLimitedBody(t *testing.T) {
	t.Run("reads within limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("short content"))
		}))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := readLimitedBody(resp.Body, 1000)
		require.NoError(t, err)
		assert.Equal(t, "short content", string(body))
	})

	t.Run("truncates beyond limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for i := 0; i < 100; i++ {
				w.Write([]byte("0123456789"))
			}
		}))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := readLimitedBody(resp.Body, 100)
		require.NoError(t, err)
		assert.Len(t, body, 100)
	})
}
