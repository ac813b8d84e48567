package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gangu/backend/config"
	"github.com/gangu/backend/internal/domain"
)

const testCatalog = `
platforms:
  - name: amazon
    listings:
      - item_name: Tata Sampann Toor Dal 1kg
        price: 95
        quantity: 1 kg
        delivery_time: 2 days
        rating: 4.2
        reviews_count: 5100
  - name: zepto
    listings:
      - item_name: Tata Sampann Toor Dal 1kg
        price: "₹110"
        quantity: 1kg
        delivery_time: 12 hours
        rating: 4.6
        reviews_count: "2,800"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Search: config.SearchConfig{Timeout: time.Second, CatalogPath: path},
		Cache:  config.CacheConfig{Type: "memory", TTL: time.Minute},
		Decision: config.DecisionConfig{
			KnownPlatforms:     []string{"amazon", "zepto"},
			HighValueThreshold: 500,
		},
		Store:    config.StoreConfig{Driver: "memory"},
		Purchase: config.PurchaseConfig{Mode: config.PurchaseModeDryRun, UserID: "default_user"},
	}
}

func TestNew_CatalogDryRun(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if got := a.Grocery.Platforms(); len(got) != 2 {
		t.Fatalf("Platforms() = %v, want 2", got)
	}

	elderly := false
	outcome, err := a.Grocery.Order(context.Background(), domain.ShoppingRequest{
		Item:              "toor dal",
		Quantity:          "1kg",
		ElderlyProtection: &elderly,
	})
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	if outcome.Search.ListingsFound != 2 {
		t.Errorf("ListingsFound = %d, want 2", outcome.Search.ListingsFound)
	}
	if outcome.Decision.Type == domain.DecisionAutoBuy && outcome.Purchase == nil {
		t.Error("auto_buy decision without a purchase")
	}

	history, err := a.Purchases.History(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if outcome.Purchase != nil && len(history) != 1 {
		t.Errorf("History() = %d orders, want 1 for the default user", len(history))
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{
			name:   "missing catalog",
			modify: func(c *config.Config) { c.Search.CatalogPath = "/nonexistent/catalog.yaml" },
		},
		{
			name:   "unknown store driver",
			modify: func(c *config.Config) { c.Store.Driver = "mongo" },
		},
		{
			name:   "live mode without platforms",
			modify: func(c *config.Config) { c.Purchase.Mode = config.PurchaseModeLive },
		},
		{
			name:   "unknown purchase mode",
			modify: func(c *config.Config) { c.Purchase.Mode = "maybe" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)

			a, err := New(cfg)
			if err == nil {
				a.Close()
				t.Fatal("New() error = nil, want error")
			}
		})
	}
}

func TestNew_LivePlatforms(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.CatalogPath = ""
	cfg.Search.Platforms = []config.PlatformConfig{
		{Name: "Zepto", BaseURL: "http://127.0.0.1:1", APIKey: "secret-key"},
	}
	cfg.RateLimit.Platform = 5
	cfg.Purchase.Mode = config.PurchaseModeLive

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if got := a.Grocery.Platforms(); len(got) != 1 || got[0] != "zepto" {
		t.Errorf("Platforms() = %v, want [zepto]", got)
	}
}

func TestNew_LLMWithoutKeyStaysDeterministic(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Enabled = true

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Comparison == nil {
		t.Error("Comparison service not built")
	}
}
