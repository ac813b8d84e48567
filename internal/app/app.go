// Package app wires configuration into the services used by the server and the CLI.
package app

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gangu/backend/config"
	"github.com/gangu/backend/internal/domain"
	"github.com/gangu/backend/internal/infrastructure/cache"
	"github.com/gangu/backend/internal/infrastructure/llm"
	"github.com/gangu/backend/internal/infrastructure/platform"
	"github.com/gangu/backend/internal/infrastructure/store"
	"github.com/gangu/backend/internal/usecase"
)

// App holds the wired services and the resources that need closing
type App struct {
	Comparison *usecase.ComparisonService
	Grocery    *usecase.GroceryService
	Purchases  *usecase.PurchaseService

	cache *cache.MemoryCache
	store domain.OrderStore
}

// New builds every service from cfg. Searchers come from the offline catalog
// and from the configured platform APIs; both may be used at once.
func New(cfg *config.Config) (*App, error) {
	debug := debugEnabled(cfg)

	searchers, clients, err := buildSearchers(cfg)
	if err != nil {
		return nil, err
	}

	orders, err := store.New(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}

	executor, err := buildExecutor(cfg, clients)
	if err != nil {
		orders.Close()
		return nil, err
	}

	comparison, err := NewComparison(cfg)
	if err != nil {
		orders.Close()
		return nil, err
	}

	purchases := usecase.NewPurchaseService(executor, orders, usecase.PurchaseConfig{
		DefaultUserID: cfg.Purchase.UserID,
	})

	memoryCache := cache.NewMemoryCache()
	grocery := usecase.NewGroceryService(searchers, memoryCache, comparison, purchases, usecase.GroceryConfig{
		SearchTimeout:      cfg.Search.Timeout,
		CacheTTL:           cfg.Cache.TTL,
		ElderlyProtection:  cfg.Decision.ElderlyProtection,
		EnableDebugLogging: debug,
	})

	return &App{
		Comparison: comparison,
		Grocery:    grocery,
		Purchases:  purchases,
		cache:      memoryCache,
		store:      orders,
	}, nil
}

// NewComparison builds the comparison pipeline alone, with the LLM narrator
// when it is enabled and has a key.
func NewComparison(cfg *config.Config) (*usecase.ComparisonService, error) {
	debug := debugEnabled(cfg)

	var narrator domain.Narrator
	if cfg.LLM.Enabled {
		n, err := llm.NewNarrator(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
		switch {
		case errors.Is(err, domain.ErrLLMDisabled):
			log.Printf("[LLM] Narrator disabled: no API key")
		case err != nil:
			return nil, err
		default:
			narrator = n
			log.Printf("[LLM] Narrator enabled: model=%s", cfg.LLM.Model)
		}
	}

	return usecase.NewComparisonService(usecase.ComparisonConfig{
		Decision: usecase.DecisionConfig{
			KnownPlatforms:     cfg.Decision.KnownPlatforms,
			HighValueThreshold: cfg.Decision.HighValueThreshold,
			EnableDebugLogging: debug,
		},
		ElderlyProtection:  cfg.Decision.ElderlyProtection,
		EnableDebugLogging: debug,
	}, narrator), nil
}

// Close releases the cache janitor and the order store
func (a *App) Close() error {
	a.cache.Close()
	return a.store.Close()
}

func debugEnabled(cfg *config.Config) bool {
	return cfg.Server.Environment == "development" || cfg.Search.Debug
}

func buildSearchers(cfg *config.Config) ([]domain.PlatformSearcher, map[string]*platform.Client, error) {
	var searchers []domain.PlatformSearcher

	if cfg.Search.CatalogPath != "" {
		catalog, err := platform.LoadCatalog(cfg.Search.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		searchers = append(searchers, catalog...)
		log.Printf("[SEARCH] Catalog %s: %d platforms", cfg.Search.CatalogPath, len(catalog))
	}

	clients := make(map[string]*platform.Client, len(cfg.Search.Platforms))
	for _, p := range cfg.Search.Platforms {
		client := platform.NewClient(platform.Config{
			Name:          p.Name,
			BaseURL:       p.BaseURL,
			APIKey:        p.APIKey,
			RatePerSecond: float64(cfg.RateLimit.Platform),
			Burst:         cfg.RateLimit.Platform,
			Timeout:       cfg.Search.Timeout,
		})
		client.SetDebug(cfg.Search.Debug)
		clients[client.Name()] = client
		searchers = append(searchers, client)

		key := "NOT CONFIGURED"
		if len(p.APIKey) >= 4 {
			key = p.APIKey[:4] + "..."
		}
		log.Printf("[PLATFORM] %s: %s (key: %s)", client.Name(), p.BaseURL, key)
	}

	return searchers, clients, nil
}

func buildExecutor(cfg *config.Config, clients map[string]*platform.Client) (domain.PurchaseExecutor, error) {
	switch strings.ToLower(cfg.Purchase.Mode) {
	case "", config.PurchaseModeDryRun:
		log.Printf("[PURCHASE] Dry-run mode: no real orders are placed")
		return platform.NewDryRunExecutor(), nil
	case config.PurchaseModeLive:
		if len(clients) == 0 {
			return nil, fmt.Errorf("live purchase mode needs at least one platform")
		}
		router := platform.NewRouter()
		for name, client := range clients {
			router.Register(name, client)
		}
		log.Printf("[PURCHASE] Live mode: %d platforms", len(clients))
		return router, nil
	default:
		return nil, fmt.Errorf("unknown purchase mode %q", cfg.Purchase.Mode)
	}
}
