package usecase

import (
	"log"
	"regexp"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// extendedStopWords includes basic English stop words plus listing-title noise
var extendedStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	// Size/quantity units
	"g": true, "gm": true, "gms": true, "kg": true, "kgs": true,
	"ml": true, "l": true, "ltr": true, "litre": true, "liter": true,
	"mg": true, "strip": true, "strips": true, "tablets": true, "pcs": true,
	"pc": true, "unit": true, "units": true, "piece": true, "pieces": true,
	// Packaging terms
	"pack": true, "packet": true, "pouch": true, "box": true, "bag": true,
	"bottle": true, "jar": true, "tin": true, "carton": true, "combo": true,
}

// IdentityConfig holds configuration for product identity resolution
type IdentityConfig struct {
	BrandEditDistance  int
	MinTokenCoverage   float64
	EnableDebugLogging bool
}

// IdentityResolver decides whether listings from different platforms are the same product
type IdentityResolver struct {
	brandEditDistance  int
	minTokenCoverage   float64
	enableDebugLogging bool
}

// NewIdentityResolver creates a resolver with the given configuration
func NewIdentityResolver(config IdentityConfig) *IdentityResolver {
	dist := config.BrandEditDistance
	if dist <= 0 {
		dist = 1
	}

	coverage := config.MinTokenCoverage
	if coverage <= 0 {
		coverage = 0.5
	}

	return &IdentityResolver{
		brandEditDistance:  dist,
		minTokenCoverage:   coverage,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// SameProduct reports whether two listings describe the same product.
// Brands must be within the edit distance (or both absent) and the product
// tokens, brand removed, must overlap by at least the minimum coverage.
func (r *IdentityResolver) SameProduct(a, b *domain.NormalizedListing) bool {
	if !r.brandsMatch(a, b) {
		return false
	}

	tokensA := productTokens(a.CanonicalName, a.Brand, b.Brand)
	tokensB := productTokens(b.CanonicalName, a.Brand, b.Brand)
	coverage := tokenCoverage(tokensA, tokensB, r.brandEditDistance)

	if r.enableDebugLogging {
		log.Printf("[IDENTITY] %q vs %q | coverage: %.2f", a.CanonicalName, b.CanonicalName, coverage)
	}

	return coverage >= r.minTokenCoverage
}

// Group clusters ranked listings into identity groups. Only groups with more
// than one member are returned, in order of their best rank.
func (r *IdentityResolver) Group(ranked []domain.RankedListing) []domain.IdentityGroup {
	n := len(ranked)
	if n < 2 {
		return nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.SameProduct(&ranked[i].NormalizedListing, &ranked[j].NormalizedListing) {
				ri, rj := find(i), find(j)
				if ri != rj {
					// the better-ranked listing stays the root
					if ri < rj {
						parent[rj] = ri
					} else {
						parent[ri] = rj
					}
				}
			}
		}
	}

	members := make(map[int][]int)
	var roots []int
	for i := 0; i < n; i++ {
		root := find(i)
		if _, ok := members[root]; !ok {
			roots = append(roots, root)
		}
		members[root] = append(members[root], i)
	}

	var groups []domain.IdentityGroup
	for _, root := range roots {
		idx := members[root]
		if len(idx) < 2 {
			continue
		}
		group := domain.IdentityGroup{CanonicalName: ranked[root].CanonicalName}
		seen := make(map[string]bool)
		for _, i := range idx {
			group.Ranks = append(group.Ranks, ranked[i].Rank)
			if !seen[ranked[i].Platform] {
				seen[ranked[i].Platform] = true
				group.Platforms = append(group.Platforms, ranked[i].Platform)
			}
		}
		groups = append(groups, group)
	}

	return groups
}

func (r *IdentityResolver) brandsMatch(a, b *domain.NormalizedListing) bool {
	brandA := strings.ToLower(strings.TrimSpace(a.Brand))
	brandB := strings.ToLower(strings.TrimSpace(b.Brand))

	switch {
	case brandA == "" && brandB == "":
		return true
	case brandA == "":
		return strings.Contains(a.CanonicalName, brandB)
	case brandB == "":
		return strings.Contains(b.CanonicalName, brandA)
	}

	return levenshteinDistance(brandA, brandB) <= r.brandEditDistance
}

// productTokens returns the tokens of a canonical name with any brand tokens removed
func productTokens(canonical string, brands ...string) []string {
	brand := make(map[string]bool)
	for _, b := range brands {
		for _, t := range tokenize(b) {
			brand[t] = true
		}
	}

	var tokens []string
	for _, t := range tokenize(canonical) {
		if !brand[t] {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// tokenCoverage is the share of the larger token set matched by the other,
// counting fuzzy matches within the edit distance.
func tokenCoverage(tokensA, tokensB []string, editDistance int) float64 {
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matched := 0
	used := make([]bool, len(tokensB))
	for _, ta := range tokensA {
		for j, tb := range tokensB {
			if used[j] {
				continue
			}
			if ta == tb || fuzzyTokenMatch(ta, tb, editDistance) {
				used[j] = true
				matched++
				break
			}
		}
	}

	denom := max(len(tokensA), len(tokensB))
	return float64(matched) / float64(denom)
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words, unit noise, and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if extendedStopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Short tokens produce too many false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len([]rune(s2))
	}
	if len(s2) == 0 {
		return len([]rune(s1))
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
