package usecase

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/gangu/backend/internal/domain"
)

// Filter thresholds
const (
	minQuantityRatio        = 0.3
	maxQuantityRatio        = 3.0
	minPriceRatio           = 0.2
	maxPriceRatio           = 5.0
	minOutlierSetSize       = 3     // median guard needs at least this many comparable listings
	maxGroceryDeliveryHours = 336.0 // 14 days
	lowRatingThreshold      = 3.5
	minReviewsCount         = 50
	slowDeliveryHours       = 48.0
)

// Candidate is a listing that survived filtering, with its soft warnings
type Candidate struct {
	domain.NormalizedListing
	Warnings []string
}

// FilterResult is the output of the filter
type FilterResult struct {
	Candidates   []Candidate
	Removed      []domain.FilteredListing
	SingleOption bool
}

// Filter removes disqualified listings and attaches soft warnings to the rest
type Filter struct {
	enableDebugLogging bool
}

// NewFilter creates a new filter
func NewFilter(enableDebugLogging bool) *Filter {
	return &Filter{enableDebugLogging: enableDebugLogging}
}

// conditionalCheck is a disqualifier that removes a listing in multi-listing
// sets but only warns when it would remove the last remaining option.
type conditionalCheck struct {
	warning string
	reason  func(l *domain.NormalizedListing) string
}

// Apply filters a request's listings. singleOption marks the case where only one
// listing was found at all: then only out-of-stock and unlisted products are
// removed and every other disqualifier becomes a warning.
func (f *Filter) Apply(
	listings []domain.NormalizedListing,
	requested *domain.Quantity,
	category string,
	singleOption bool,
) FilterResult {
	result := FilterResult{SingleOption: singleOption}

	// Stock is a hard removal in every mode
	pool := make([]domain.NormalizedListing, 0, len(listings))
	for _, l := range listings {
		switch l.StockStatus {
		case domain.StockOutOfStock:
			result.Removed = append(result.Removed, removed(l, "Out of stock"))
		case domain.StockNotListed:
			result.Removed = append(result.Removed, removed(l, "Not listed on platform"))
		default:
			pool = append(pool, l)
		}
	}

	medians := medianUnitPrices(pool)
	checks := []conditionalCheck{
		{domain.WarningMarkedUnavailable, func(l *domain.NormalizedListing) string {
			if !l.Available {
				return "Marked unavailable by platform"
			}
			return ""
		}},
		{domain.WarningQuantityExtreme, func(l *domain.NormalizedListing) string {
			if requested == nil || !l.Quantity.Comparable(*requested) {
				return ""
			}
			ratio := l.Quantity.Value / requested.Value
			if ratio < minQuantityRatio || ratio > maxQuantityRatio {
				return fmt.Sprintf("Quantity %s far from requested %s", formatQuantity(l.Quantity), formatQuantity(*requested))
			}
			return ""
		}},
		{domain.WarningPriceOutlier, func(l *domain.NormalizedListing) string {
			median, ok := medians[l.Quantity.Unit]
			if !ok || median <= 0 {
				return ""
			}
			ratio := l.UnitPrice / median
			if ratio < minPriceRatio || ratio > maxPriceRatio {
				return fmt.Sprintf("Unit price %s outside %.1fx-%.0fx of median ₹%.2f/%s",
					l.UnitPriceLabel, minPriceRatio, maxPriceRatio, median, l.Quantity.Unit)
			}
			return ""
		}},
		{domain.WarningDeliveryUnknown, func(l *domain.NormalizedListing) string {
			if !l.DeliveryKnown {
				return "Delivery time missing"
			}
			return ""
		}},
		{domain.WarningVeryLongDelivery, func(l *domain.NormalizedListing) string {
			if category == domain.CategoryGrocery && l.DeliveryHours > maxGroceryDeliveryHours {
				return fmt.Sprintf("Delivery %.0f hours exceeds 14 days", l.DeliveryHours)
			}
			return ""
		}},
	}

	survivors := len(pool)
	var kept []Candidate
	for _, l := range pool {
		var deferred []string
		dropped := false

		for _, check := range checks {
			reason := check.reason(&l)
			if reason == "" {
				continue
			}
			if !singleOption && survivors > 1 {
				result.Removed = append(result.Removed, removed(l, reason))
				survivors--
				dropped = true
				break
			}
			deferred = append(deferred, check.warning)
		}
		if dropped {
			continue
		}

		kept = append(kept, Candidate{
			NormalizedListing: l,
			Warnings:          append(softWarnings(&l, requested), deferred...),
		})
	}

	if len(kept) > 0 && singlePlatform(kept) {
		for i := range kept {
			kept[i].Warnings = append(kept[i].Warnings, domain.WarningSinglePlatform)
		}
	}

	result.Candidates = kept

	if f.enableDebugLogging {
		log.Printf("[COMPARE] Filter: %d in, %d kept, %d removed (single option: %v)",
			len(listings), len(kept), len(result.Removed), singleOption)
	}

	return result
}

// softWarnings returns the warnings that never remove a listing
func softWarnings(l *domain.NormalizedListing, requested *domain.Quantity) []string {
	var warnings []string
	if l.Rating < lowRatingThreshold {
		warnings = append(warnings, domain.WarningLowRating)
	}
	if l.ReviewsCount < minReviewsCount {
		warnings = append(warnings, domain.WarningFewReviews)
	}
	if l.DeliveryHours > slowDeliveryHours {
		warnings = append(warnings, domain.WarningSlowDelivery)
	}
	if requested != nil && !quantityEqual(l.Quantity, *requested) {
		warnings = append(warnings, domain.WarningQuantityMismatch)
	}
	return warnings
}

func singlePlatform(candidates []Candidate) bool {
	for _, c := range candidates[1:] {
		if c.Platform != candidates[0].Platform {
			return false
		}
	}
	return true
}

// medianUnitPrices returns the median unit price per base unit, for units
// with enough listings to make an outlier judgement.
func medianUnitPrices(listings []domain.NormalizedListing) map[string]float64 {
	byUnit := make(map[string][]float64)
	for _, l := range listings {
		byUnit[l.Quantity.Unit] = append(byUnit[l.Quantity.Unit], l.UnitPrice)
	}

	medians := make(map[string]float64, len(byUnit))
	for unit, prices := range byUnit {
		if len(prices) < minOutlierSetSize {
			continue
		}
		medians[unit] = median(prices)
	}
	return medians
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func quantityEqual(a, b domain.Quantity) bool {
	return a.Unit == b.Unit && math.Abs(a.Value-b.Value) < 1e-9
}

func formatQuantity(q domain.Quantity) string {
	return fmt.Sprintf("%g%s", q.Value, q.Unit)
}

func removed(l domain.NormalizedListing, reason string) domain.FilteredListing {
	return domain.FilteredListing{
		Platform: l.Platform,
		ItemName: l.OriginalName,
		Reason:   reason,
	}
}
