package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gangu/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// GroceryConfig holds configuration for the grocery service
type GroceryConfig struct {
	SearchTimeout      time.Duration
	CacheTTL           time.Duration
	ElderlyProtection  bool
	EnableDebugLogging bool
}

// GroceryService runs the order flow: search every platform, compare the
// results, decide, and buy when the decision allows it.
type GroceryService struct {
	searchers     []domain.PlatformSearcher
	cache         domain.CacheRepository
	comparison    *ComparisonService
	purchases     *PurchaseService
	preprocessor  *QueryPreprocessor
	searchTimeout time.Duration
	cacheTTL      time.Duration
	elderly       bool
	debug         bool
}

// NewGroceryService creates a new grocery service with dependencies.
// cache and purchases may be nil: searches then always hit the platforms and
// the flow stops at the decision.
func NewGroceryService(
	searchers []domain.PlatformSearcher,
	cache domain.CacheRepository,
	comparison *ComparisonService,
	purchases *PurchaseService,
	config GroceryConfig,
) *GroceryService {
	searchTimeout := config.SearchTimeout
	if searchTimeout == 0 {
		searchTimeout = 10 * time.Second
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	return &GroceryService{
		searchers:     searchers,
		cache:         cache,
		comparison:    comparison,
		purchases:     purchases,
		preprocessor:  NewQueryPreprocessor(config.EnableDebugLogging),
		searchTimeout: searchTimeout,
		cacheTTL:      cacheTTL,
		elderly:       config.ElderlyProtection,
		debug:         config.EnableDebugLogging,
	}
}

// Platforms returns the names of the configured searchers
func (s *GroceryService) Platforms() []string {
	names := make([]string, 0, len(s.searchers))
	for _, searcher := range s.searchers {
		names = append(names, searcher.Name())
	}
	return names
}

// Search queries every platform concurrently, each with its own timeout.
// A failing platform is recorded in PlatformErrors; partial results are fine.
// only restricts the search to the named platforms when non-empty.
func (s *GroceryService) Search(ctx context.Context, query domain.SearchQuery, only []string) (*domain.SearchResult, error) {
	if strings.TrimSpace(query.Item) == "" {
		return nil, fmt.Errorf("%w: item is required", domain.ErrInvalidRequest)
	}

	searchers := s.selectSearchers(only)
	if len(searchers) == 0 {
		return nil, domain.ErrNoPlatforms
	}

	if cleaned := s.preprocessor.PreprocessQuery(query.Item, ""); cleaned != "" {
		query.Item = cleaned
	}

	results := make([][]domain.RawListing, len(searchers))
	failures := make([]error, len(searchers))

	g, gctx := errgroup.WithContext(ctx)
	for i, searcher := range searchers {
		g.Go(func() error {
			results[i], failures[i] = s.searchPlatform(gctx, searcher, query)
			// a failed platform must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.SearchResult{
		Query:            query,
		PlatformsQueried: make([]string, 0, len(searchers)),
		PlatformErrors:   []domain.PlatformError{},
		Listings:         []domain.RawListing{},
	}
	for i, searcher := range searchers {
		result.PlatformsQueried = append(result.PlatformsQueried, searcher.Name())
		if failures[i] != nil {
			result.PlatformErrors = append(result.PlatformErrors, domain.PlatformError{
				Platform: searcher.Name(),
				Error:    failures[i].Error(),
			})
			continue
		}
		result.Listings = append(result.Listings, results[i]...)
	}
	result.ListingsFound = len(result.Listings)

	log.Printf("[SEARCH] query=%q platforms=%d listings=%d errors=%d",
		query.Item, len(searchers), result.ListingsFound, len(result.PlatformErrors))

	return result, nil
}

// Order runs search -> compare -> decide -> purchase. Only auto_buy decisions
// are purchased; every other decision is returned for the caller to act on.
func (s *GroceryService) Order(ctx context.Context, req domain.ShoppingRequest) (*domain.OrderOutcome, error) {
	if strings.TrimSpace(req.Item) == "" {
		return nil, fmt.Errorf("%w: item is required", domain.ErrInvalidRequest)
	}
	urgency, err := domain.ParseUrgency(string(req.Urgency))
	if err != nil {
		return nil, err
	}

	elderly := s.elderly
	if req.ElderlyProtection != nil {
		elderly = *req.ElderlyProtection
	}

	search, err := s.Search(ctx, domain.SearchQuery{
		Item:     req.Item,
		Quantity: req.Quantity,
		Category: req.Category,
	}, req.Platforms)
	if err != nil {
		return nil, err
	}

	eval, err := s.comparison.Evaluate(ctx, domain.ComparisonRequest{
		Item:              req.Item,
		Quantity:          req.Quantity,
		Urgency:           urgency,
		Category:          req.Category,
		ElderlyProtection: &elderly,
	}, search.Listings)
	if err != nil {
		return nil, err
	}

	outcome := &domain.OrderOutcome{
		Search:     search,
		Comparison: eval.Comparison,
		Decision:   eval.Decision,
	}

	if s.purchases == nil || eval.Decision.Type != domain.DecisionAutoBuy {
		return outcome, nil
	}

	purchase, err := s.purchases.Execute(ctx, req.UserID, eval.Decision)
	if err != nil && !errors.Is(err, domain.ErrPurchaseFailed) {
		return nil, err
	}
	outcome.Purchase = purchase

	return outcome, nil
}

func (s *GroceryService) selectSearchers(only []string) []domain.PlatformSearcher {
	if len(only) == 0 {
		return s.searchers
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[normalizePlatform(name)] = true
	}

	var selected []domain.PlatformSearcher
	for _, searcher := range s.searchers {
		if wanted[normalizePlatform(searcher.Name())] {
			selected = append(selected, searcher)
		}
	}
	return selected
}

// searchPlatform checks the cache, then calls the platform under the search timeout
func (s *GroceryService) searchPlatform(
	ctx context.Context,
	searcher domain.PlatformSearcher,
	query domain.SearchQuery,
) ([]domain.RawListing, error) {
	cacheKey := generateCacheKey(searcher.Name(), query)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		if s.debug {
			log.Printf("[SEARCH] Cache hit for %s", cacheKey)
		}
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	listings, err := searcher.Search(ctx, query)
	if err != nil {
		log.Printf("[SEARCH] Platform %s failed: %v", searcher.Name(), err)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrPlatformFailure, searcher.Name(), err)
	}

	for i := range listings {
		if listings[i].Platform == "" {
			listings[i].Platform = searcher.Name()
		}
	}

	if err := s.setInCache(ctx, cacheKey, listings); err != nil {
		log.Printf("[SEARCH] Failed to cache results for %s: %v", cacheKey, err)
	}

	return listings, nil
}

// generateCacheKey creates a normalized cache key for one platform search.
// Format: "search:{platform}:{normalized_item}:{normalized_quantity}"
func generateCacheKey(platform string, query domain.SearchQuery) string {
	return fmt.Sprintf("search:%s:%s:%s",
		normalizeForCacheKey(platform),
		normalizeForCacheKey(query.Item),
		normalizeForCacheKey(query.Quantity))
}

// normalizeForCacheKey normalizes a string for use as cache key component.
// Converts to lowercase, removes special characters, and trims whitespace.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache retrieves a platform's listings from cache
func (s *GroceryService) getFromCache(ctx context.Context, key string) ([]domain.RawListing, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var listings []domain.RawListing
	if err := json.Unmarshal(value, &listings); err != nil {
		return nil, domain.ErrCacheMiss
	}
	return listings, nil
}

// setInCache stores a platform's listings in cache
func (s *GroceryService) setInCache(ctx context.Context, key string, listings []domain.RawListing) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
