package usecase

import (
	"log"
	"regexp"
	"strings"
)

// QueryPreprocessor handles cleaning grocery item names for search and comparison
type QueryPreprocessor struct {
	enableDebugLogging bool
}

// Compiled regex patterns for query preprocessing
var (
	// Matches size/quantity patterns like "500g", "1 kg", "1.5 litre", "200 ml", "1 strip"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kgs?|kilograms?|grams?|gms?|g|mg|mcg|ml|millilit(?:er|re)s?|lit(?:er|re)s?|ltrs?|l|strips?|tablets?|tabs?|units?|pieces?|pcs?)\b`)

	// Matches pack/count patterns like "pack of 6", "6-pack", "2 x 500g", "combo of 3"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct)\b|\b(?:pack|combo|set)\s*of\s*\d+\b|\b\d+\s*x\b|\(\s*\)`)

	// Matches standalone numbers with no unit at either end (e.g., ", 2", "- 12")
	standaloneNumberPattern = regexp.MustCompile(`[,\-]\s*\d+(?:\.\d+)?\s*$|^\d+(?:\.\d+)?\s*[,\-]`)

	multiSpacePattern = regexp.MustCompile(`\s+`)

	orphanedInnerPunct    = regexp.MustCompile(`\s+[,\-;:|]+\s+`)
	orphanedTrailingPunct = regexp.MustCompile(`[,\-;:|]+\s*$`)
	orphanedLeadingPunct  = regexp.MustCompile(`^\s*[,\-;:|]+`)
)

// queryNoiseWords are dropped from queries (marketing terms, packaging, generic descriptors)
var queryNoiseWords = map[string]bool{
	// Marketing terms
	"value":    true,
	"offer":    true,
	"combo":    true,
	"saver":    true,
	"super":    true,
	"new":      true,
	"improved": true,
	"premium":  true,
	"select":   true,
	"choice":   true,
	"quality":  true,
	"best":     true,
	"special":  true,
	"genuine":  true,

	// Size descriptors
	"size":   true,
	"large":  true,
	"medium": true,
	"small":  true,
	"mini":   true,
	"jumbo":  true,
	"big":    true,
	"family": true,

	// Packaging terms
	"pack":   true,
	"packet": true,
	"pouch":  true,
	"box":    true,
	"bag":    true,
	"bottle": true,
	"jar":    true,
	"tub":    true,
	"tin":    true,
	"carton": true,
	"sachet": true,

	// Generic terms that don't help narrow down
	"item":    true,
	"product": true,
	"brand":   true,
	"buy":     true,
	"online":  true,
	"please":  true,
	"some":    true,
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{
		enableDebugLogging: enableDebugLogging,
	}
}

// PreprocessQuery cleans a requested item for platform search.
// Removes size/quantity info, pack counts and marketing terms, then prepends the brand
// when it is not already present.
func (p *QueryPreprocessor) PreprocessQuery(itemName, brand string) string {
	if itemName == "" {
		return ""
	}

	cleaned := p.clean(itemName)

	if brand != "" {
		cleanedLower := strings.ToLower(cleaned)
		brandLower := strings.ToLower(brand)
		if !strings.Contains(cleanedLower, brandLower) {
			cleaned = brand + " " + cleaned
		}
	}

	// Platform search endpoints reject very long queries
	if len(cleaned) > 100 {
		cleaned = cleaned[:100]
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > 50 {
			cleaned = cleaned[:lastSpace]
		}
	}

	if p.enableDebugLogging {
		log.Printf("[PREPROCESS] Input: %q -> Output: %q", itemName, cleaned)
	}

	return cleaned
}

// CanonicalName derives the comparable product name of a listing title:
// lowercase, no quantities, no packaging or marketing noise.
func (p *QueryPreprocessor) CanonicalName(itemName string) string {
	cleaned := p.clean(itemName)
	if cleaned == "" {
		return strings.ToLower(strings.TrimSpace(itemName))
	}
	return cleaned
}

func (p *QueryPreprocessor) clean(s string) string {
	// Text in brackets is usually pack detail ("1 strip (15 tablets)")
	if idx := strings.Index(s, "("); idx > 0 {
		s = s[:idx]
	}

	cleaned := sizeQuantityPattern.ReplaceAllString(s, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = standaloneNumberPattern.ReplaceAllString(cleaned, " ")
	cleaned = p.removeNoiseWords(cleaned)
	cleaned = cleanOrphanedPunctuation(cleaned)

	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// removeNoiseWords removes marketing and generic terms from the query
func (p *QueryPreprocessor) removeNoiseWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	var kept []string

	for _, word := range words {
		cleanWord := strings.Trim(word, ",.!?;:-'\"")
		if !queryNoiseWords[cleanWord] {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

// cleanOrphanedPunctuation removes punctuation that's now alone (e.g., lone commas)
func cleanOrphanedPunctuation(s string) string {
	result := orphanedInnerPunct.ReplaceAllString(s, " ")
	result = orphanedTrailingPunct.ReplaceAllString(result, "")
	result = orphanedLeadingPunct.ReplaceAllString(result, "")
	return result
}
