package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gangu/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockPlatformSearcher is a mock implementation of domain.PlatformSearcher
type MockPlatformSearcher struct {
	name     string
	listings []domain.RawListing
	err      error
	delay    time.Duration

	mu      sync.Mutex
	queries []domain.SearchQuery
}

func NewMockPlatformSearcher(name string, listings ...domain.RawListing) *MockPlatformSearcher {
	return &MockPlatformSearcher{name: name, listings: listings}
}

func (m *MockPlatformSearcher) Name() string {
	return m.name
}

func (m *MockPlatformSearcher) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawListing, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.RawListing(nil), m.listings...), nil
}

func (m *MockPlatformSearcher) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

func TestNewGroceryService(t *testing.T) {
	t.Run("creates service with default values", func(t *testing.T) {
		svc := NewGroceryService(nil, nil, newTestComparisonService(nil), nil, GroceryConfig{})
		if svc.searchTimeout != 10*time.Second {
			t.Errorf("searchTimeout = %v, want 10s", svc.searchTimeout)
		}
		if svc.cacheTTL != 15*time.Minute {
			t.Errorf("cacheTTL = %v, want 15m", svc.cacheTTL)
		}
	})

	t.Run("creates service with custom values", func(t *testing.T) {
		svc := NewGroceryService(nil, nil, newTestComparisonService(nil), nil, GroceryConfig{
			SearchTimeout: 2 * time.Second,
			CacheTTL:      time.Hour,
		})
		if svc.searchTimeout != 2*time.Second || svc.cacheTTL != time.Hour {
			t.Errorf("timeouts = %v/%v, want 2s/1h", svc.searchTimeout, svc.cacheTTL)
		}
	})
}

func TestGrocerySearch(t *testing.T) {
	ctx := context.Background()
	listings := toorDalListings()

	t.Run("returns error for empty item", func(t *testing.T) {
		svc := NewGroceryService([]domain.PlatformSearcher{NewMockPlatformSearcher("zepto")}, nil,
			newTestComparisonService(nil), nil, GroceryConfig{})

		_, err := svc.Search(ctx, domain.SearchQuery{Item: " "}, nil)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("returns error without platforms", func(t *testing.T) {
		svc := NewGroceryService(nil, nil, newTestComparisonService(nil), nil, GroceryConfig{})

		_, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal"}, nil)
		if !errors.Is(err, domain.ErrNoPlatforms) {
			t.Errorf("error = %v, want ErrNoPlatforms", err)
		}
	})

	t.Run("merges results and records failed platforms", func(t *testing.T) {
		amazon := NewMockPlatformSearcher("amazon", listings[0])
		zepto := NewMockPlatformSearcher("zepto", listings[1])
		broken := NewMockPlatformSearcher("blinkit")
		broken.err = errors.New("503 service unavailable")

		svc := NewGroceryService([]domain.PlatformSearcher{amazon, zepto, broken}, NewMockCacheRepository(),
			newTestComparisonService(nil), nil, GroceryConfig{})

		result, err := svc.Search(ctx, domain.SearchQuery{Item: "Toor Dal 1kg pack", Quantity: "1kg"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ListingsFound != 2 {
			t.Errorf("ListingsFound = %d, want 2", result.ListingsFound)
		}
		if len(result.PlatformErrors) != 1 || result.PlatformErrors[0].Platform != "blinkit" {
			t.Errorf("PlatformErrors = %+v, want blinkit", result.PlatformErrors)
		}
		if result.Query.Item != "toor dal" {
			t.Errorf("Query.Item = %q, want cleaned query %q", result.Query.Item, "toor dal")
		}
		if len(result.PlatformsQueried) != 3 {
			t.Errorf("PlatformsQueried = %v, want 3 platforms", result.PlatformsQueried)
		}
	})

	t.Run("slow platform times out without blocking others", func(t *testing.T) {
		fast := NewMockPlatformSearcher("zepto", listings[1])
		slow := NewMockPlatformSearcher("amazon", listings[0])
		slow.delay = time.Second

		svc := NewGroceryService([]domain.PlatformSearcher{fast, slow}, nil,
			newTestComparisonService(nil), nil, GroceryConfig{SearchTimeout: 20 * time.Millisecond})

		result, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ListingsFound != 1 {
			t.Errorf("ListingsFound = %d, want 1", result.ListingsFound)
		}
		if len(result.PlatformErrors) != 1 || result.PlatformErrors[0].Platform != "amazon" {
			t.Errorf("PlatformErrors = %+v, want amazon", result.PlatformErrors)
		}
	})

	t.Run("second search is served from cache", func(t *testing.T) {
		zepto := NewMockPlatformSearcher("zepto", listings[1])
		cache := NewMockCacheRepository()
		svc := NewGroceryService([]domain.PlatformSearcher{zepto}, cache,
			newTestComparisonService(nil), nil, GroceryConfig{})

		for i := 0; i < 2; i++ {
			result, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal", Quantity: "1kg"}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ListingsFound != 1 || result.Listings[0].Price != listings[1].Price {
				t.Errorf("run %d listings = %+v", i, result.Listings)
			}
		}
		if zepto.calls() != 1 {
			t.Errorf("platform called %d times, want 1", zepto.calls())
		}
		if _, ok := cache.data["search:zepto:toor dal:1kg"]; !ok {
			t.Errorf("cache keys = %v, want search:zepto:toor dal:1kg", cache.data)
		}
	})

	t.Run("continues even if caching fails", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.setError = errors.New("cache write failed")
		svc := NewGroceryService([]domain.PlatformSearcher{NewMockPlatformSearcher("zepto", listings[1])}, cache,
			newTestComparisonService(nil), nil, GroceryConfig{})

		result, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ListingsFound != 1 {
			t.Errorf("ListingsFound = %d, want 1", result.ListingsFound)
		}
	})

	t.Run("corrupt cache entry falls through to the platform", func(t *testing.T) {
		zepto := NewMockPlatformSearcher("zepto", listings[1])
		cache := NewMockCacheRepository()
		cache.data["search:zepto:toor dal:"] = []byte("not json")
		svc := NewGroceryService([]domain.PlatformSearcher{zepto}, cache,
			newTestComparisonService(nil), nil, GroceryConfig{})

		if _, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal"}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if zepto.calls() != 1 {
			t.Errorf("platform called %d times, want 1", zepto.calls())
		}
	})

	t.Run("restricts to requested platforms", func(t *testing.T) {
		amazon := NewMockPlatformSearcher("amazon", listings[0])
		zepto := NewMockPlatformSearcher("zepto", listings[1])
		svc := NewGroceryService([]domain.PlatformSearcher{amazon, zepto}, nil,
			newTestComparisonService(nil), nil, GroceryConfig{})

		result, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal"}, []string{"Zepto"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if amazon.calls() != 0 || zepto.calls() != 1 {
			t.Errorf("calls amazon=%d zepto=%d, want 0 and 1", amazon.calls(), zepto.calls())
		}
		if result.ListingsFound != 1 {
			t.Errorf("ListingsFound = %d, want 1", result.ListingsFound)
		}
	})

	t.Run("fills in a missing platform name", func(t *testing.T) {
		unnamed := listings[1]
		unnamed.Platform = ""
		svc := NewGroceryService([]domain.PlatformSearcher{NewMockPlatformSearcher("zepto", unnamed)}, nil,
			newTestComparisonService(nil), nil, GroceryConfig{})

		result, err := svc.Search(ctx, domain.SearchQuery{Item: "toor dal"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Listings[0].Platform != "zepto" {
			t.Errorf("Platform = %q, want zepto", result.Listings[0].Platform)
		}
	})
}

func TestGroceryOrder(t *testing.T) {
	ctx := context.Background()
	listings := toorDalListings()

	searchers := func() []domain.PlatformSearcher {
		return []domain.PlatformSearcher{
			NewMockPlatformSearcher("amazon", listings[0]),
			NewMockPlatformSearcher("zepto", listings[1]),
			NewMockPlatformSearcher("blinkit", listings[2]),
		}
	}

	t.Run("auto buy places the order", func(t *testing.T) {
		store := NewMockOrderStore()
		executor := &MockPurchaseExecutor{}
		purchases := NewPurchaseService(executor, store, PurchaseConfig{})
		svc := NewGroceryService(searchers(), NewMockCacheRepository(), newTestComparisonService(nil), purchases, GroceryConfig{})

		outcome, err := svc.Order(ctx, domain.ShoppingRequest{Item: "toor dal", Quantity: "1kg", UserID: "u1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Decision.Type != domain.DecisionAutoBuy {
			t.Fatalf("decision = %s, want auto_buy", outcome.Decision.Type)
		}
		if outcome.Purchase == nil || outcome.Purchase.Status != domain.OrderPlaced {
			t.Fatalf("purchase = %+v, want placed", outcome.Purchase)
		}
		if outcome.Purchase.Order.Platform != "amazon" {
			t.Errorf("ordered from %s, want amazon", outcome.Purchase.Order.Platform)
		}
		if len(executor.requests) != 1 {
			t.Errorf("executor called %d times, want 1", len(executor.requests))
		}
	})

	t.Run("elderly default turns a moderate lead into a confirmation", func(t *testing.T) {
		executor := &MockPurchaseExecutor{}
		purchases := NewPurchaseService(executor, NewMockOrderStore(), PurchaseConfig{})
		svc := NewGroceryService(searchers(), nil, newTestComparisonService(nil), purchases,
			GroceryConfig{ElderlyProtection: true})

		outcome, err := svc.Order(ctx, domain.ShoppingRequest{Item: "toor dal", Quantity: "1kg"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Decision.Type != domain.DecisionConfirmWithUser {
			t.Errorf("decision = %s, want confirm_with_user", outcome.Decision.Type)
		}
		if outcome.Purchase != nil || len(executor.requests) != 0 {
			t.Error("confirm_with_user must not purchase")
		}
	})

	t.Run("request overrides the elderly default", func(t *testing.T) {
		off := false
		svc := NewGroceryService(searchers(), nil, newTestComparisonService(nil), nil,
			GroceryConfig{ElderlyProtection: true})

		outcome, err := svc.Order(ctx, domain.ShoppingRequest{Item: "toor dal", Quantity: "1kg", ElderlyProtection: &off})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Decision.Type != domain.DecisionAutoBuy {
			t.Errorf("decision = %s, want auto_buy", outcome.Decision.Type)
		}
		if outcome.Purchase != nil {
			t.Error("no purchase service configured, expected no purchase")
		}
	})

	t.Run("all platforms failing is no good option", func(t *testing.T) {
		broken := NewMockPlatformSearcher("zepto")
		broken.err = errors.New("connection refused")
		svc := NewGroceryService([]domain.PlatformSearcher{broken}, nil, newTestComparisonService(nil), nil, GroceryConfig{})

		outcome, err := svc.Order(ctx, domain.ShoppingRequest{Item: "toor dal"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Decision.Type != domain.DecisionNoGoodOption {
			t.Errorf("decision = %s, want no_good_option", outcome.Decision.Type)
		}
		if len(outcome.Search.PlatformErrors) != 1 {
			t.Errorf("PlatformErrors = %+v, want one", outcome.Search.PlatformErrors)
		}
	})

	t.Run("failed purchase is reported, not returned as error", func(t *testing.T) {
		executor := &MockPurchaseExecutor{failFor: map[string]bool{"amazon": true, "zepto": true, "blinkit": true}}
		purchases := NewPurchaseService(executor, NewMockOrderStore(), PurchaseConfig{})
		svc := NewGroceryService(searchers(), nil, newTestComparisonService(nil), purchases, GroceryConfig{})

		outcome, err := svc.Order(ctx, domain.ShoppingRequest{Item: "toor dal", Quantity: "1kg"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.Purchase == nil || outcome.Purchase.Status != domain.OrderFailed {
			t.Errorf("purchase = %+v, want failed", outcome.Purchase)
		}
	})

	t.Run("rejects invalid urgency before searching", func(t *testing.T) {
		zepto := NewMockPlatformSearcher("zepto", listings[1])
		svc := NewGroceryService([]domain.PlatformSearcher{zepto}, nil, newTestComparisonService(nil), nil, GroceryConfig{})

		_, err := svc.Order(ctx, domain.ShoppingRequest{Item: "toor dal", Urgency: "yesterday"})
		if !errors.Is(err, domain.ErrInvalidUrgency) {
			t.Errorf("error = %v, want ErrInvalidUrgency", err)
		}
		if zepto.calls() != 0 {
			t.Error("platform should not be searched for an invalid request")
		}
	})
}

func TestGenerateCacheKey(t *testing.T) {
	t.Run("generates key with item only", func(t *testing.T) {
		key := generateCacheKey("Zepto", domain.SearchQuery{Item: "Toor Dal"})
		if key != "search:zepto:toor dal:" {
			t.Errorf("key = %v, want search:zepto:toor dal:", key)
		}
	})

	t.Run("normalizes special characters", func(t *testing.T) {
		key := generateCacheKey("Swiggy Instamart", domain.SearchQuery{Item: "Amul Butter (Salted)", Quantity: "1.5 kg"})
		if key != "search:swiggy instamart:amul butter salted:15 kg" {
			t.Errorf("key = %v, want search:swiggy instamart:amul butter salted:15 kg", key)
		}
	})
}

func TestNormalizeForCacheKey(t *testing.T) {
	t.Run("converts to lowercase", func(t *testing.T) {
		result := normalizeForCacheKey("TOOR DAL")
		if result != "toor dal" {
			t.Errorf("result = %v, want 'toor dal'", result)
		}
	})

	t.Run("removes special characters", func(t *testing.T) {
		result := normalizeForCacheKey("milk, 2% (toned)")
		if result != "milk 2 toned" {
			t.Errorf("result = %v, want 'milk 2 toned'", result)
		}
	})

	t.Run("handles empty string", func(t *testing.T) {
		result := normalizeForCacheKey("")
		if result != "" {
			t.Errorf("result = %v, want empty string", result)
		}
	})

	t.Run("collapses multiple spaces", func(t *testing.T) {
		result := normalizeForCacheKey("  toor    dal  ")
		if result != "toor dal" {
			t.Errorf("result = %v, want 'toor dal'", result)
		}
	})
}

func TestCachedListingsRoundTrip(t *testing.T) {
	cache := NewMockCacheRepository()
	svc := NewGroceryService(nil, cache, newTestComparisonService(nil), nil, GroceryConfig{})
	ctx := context.Background()

	if err := svc.setInCache(ctx, "k", toorDalListings()); err != nil {
		t.Fatalf("setInCache: %v", err)
	}
	got, err := svc.getFromCache(ctx, "k")
	if err != nil {
		t.Fatalf("getFromCache: %v", err)
	}

	want, _ := json.Marshal(toorDalListings())
	gotJSON, _ := json.Marshal(got)
	if string(want) != string(gotJSON) {
		t.Errorf("round trip changed listings:\n got %s\nwant %s", gotJSON, want)
	}
}
