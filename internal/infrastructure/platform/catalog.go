package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/gangu/backend/internal/domain"
)

// CatalogFile is the offline catalog format:
//
//	platforms:
//	  - name: zepto
//	    listings:
//	      - item_name: Tata Sampann Toor Dal 1kg
//	        price: 110
type CatalogFile struct {
	Platforms []CatalogPlatform `yaml:"platforms" json:"platforms"`
}

// CatalogPlatform holds one platform's listings
type CatalogPlatform struct {
	Name     string              `yaml:"name" json:"name"`
	Listings []domain.RawListing `yaml:"listings" json:"listings"`
}

// ListingsFile is the input of an offline comparison: a request and the listings to compare
type ListingsFile struct {
	Request  domain.ComparisonRequest `yaml:"request" json:"request"`
	Listings []domain.RawListing      `yaml:"listings" json:"listings"`
}

// CatalogSearcher answers searches from listings held in memory
type CatalogSearcher struct {
	name     string
	listings []domain.RawListing
}

// NewCatalogSearcher creates a searcher over a fixed set of listings
func NewCatalogSearcher(name string, listings []domain.RawListing) *CatalogSearcher {
	name = strings.ToLower(strings.TrimSpace(name))
	owned := make([]domain.RawListing, len(listings))
	for i, l := range listings {
		if l.Platform == "" {
			l.Platform = name
		}
		owned[i] = l
	}
	return &CatalogSearcher{name: name, listings: owned}
}

// Name returns the platform name
func (s *CatalogSearcher) Name() string {
	return s.name
}

// Search returns the listings whose name or brand contains every word of the query item
func (s *CatalogSearcher) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := tokenize(query.Item)
	if len(words) == 0 {
		return []domain.RawListing{}, nil
	}

	matches := []domain.RawListing{}
	for _, l := range s.listings {
		if containsAll(tokenize(l.Brand+" "+l.ItemName), words) {
			matches = append(matches, l)
		}
	}
	return matches, nil
}

// LoadCatalog reads a YAML or JSON catalog and returns one searcher per platform
func LoadCatalog(path string) ([]domain.PlatformSearcher, error) {
	var catalog CatalogFile
	if err := decodeFile(path, &catalog); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(catalog.Platforms) == 0 {
		return nil, fmt.Errorf("catalog %s lists no platforms", path)
	}

	searchers := make([]domain.PlatformSearcher, 0, len(catalog.Platforms))
	for _, p := range catalog.Platforms {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog %s has a platform without a name", path)
		}
		searchers = append(searchers, NewCatalogSearcher(p.Name, p.Listings))
	}
	return searchers, nil
}

// ReadListingsFile reads a YAML or JSON comparison input
func ReadListingsFile(path string) (*ListingsFile, error) {
	var file ListingsFile
	if err := decodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}
	return &file, nil
}

// decodeFile picks the decoder from the extension; anything but .json is YAML
func decodeFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, w := range haystack {
		set[w] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
