package usecase

import (
	"log"
	"math"

	"github.com/gangu/backend/internal/domain"
)

// Sub-score constants
const (
	speedWindowHours       = 48.0 // delivery this much slower than the fastest scores 0
	lowStockAvailability   = 70.0
	reviewCredibilityCap   = 2.0 // log10 of the review count saturates at 100 reviews
	quantityExactScore     = 100.0
	quantityCloseScore     = 80.0 // within 20%
	quantityNearScore      = 60.0 // within 50%
	quantityFarScore       = 40.0
	quantityCloseTolerance = 0.2
	quantityNearTolerance  = 0.5
)

// urgencyWeights is the weight table selected by urgency; every row sums to 1
var urgencyWeights = map[domain.Urgency]domain.Weights{
	domain.UrgencyUrgent: {Price: 0.15, Speed: 0.50, Quality: 0.10, Availability: 0.15, QuantityMatch: 0.10},
	domain.UrgencyHigh:   {Price: 0.25, Speed: 0.35, Quality: 0.15, Availability: 0.15, QuantityMatch: 0.10},
	domain.UrgencyNormal: {Price: 0.40, Speed: 0.25, Quality: 0.15, Availability: 0.10, QuantityMatch: 0.10},
	domain.UrgencyLow:    {Price: 0.45, Speed: 0.10, Quality: 0.20, Availability: 0.10, QuantityMatch: 0.15},
}

// WeightsFor returns the weight vector for an urgency level. Unknown levels use normal.
func WeightsFor(urgency domain.Urgency) domain.Weights {
	if w, ok := urgencyWeights[urgency]; ok {
		return w
	}
	return urgencyWeights[domain.UrgencyNormal]
}

// Scorer computes sub-scores and urgency-weighted final scores
type Scorer struct {
	enableDebugLogging bool
}

// NewScorer creates a new scorer
func NewScorer(enableDebugLogging bool) *Scorer {
	return &Scorer{enableDebugLogging: enableDebugLogging}
}

// Score scores every candidate relative to the rest of the set
func (s *Scorer) Score(candidates []Candidate, requested *domain.Quantity, urgency domain.Urgency) []domain.ScoredListing {
	if len(candidates) == 0 {
		return nil
	}

	weights := WeightsFor(urgency)

	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	minHours := math.Inf(1)
	for _, c := range candidates {
		minPrice = math.Min(minPrice, c.UnitPrice)
		maxPrice = math.Max(maxPrice, c.UnitPrice)
		minHours = math.Min(minHours, c.DeliveryHours)
	}

	scored := make([]domain.ScoredListing, 0, len(candidates))
	for _, c := range candidates {
		scores := domain.SubScores{
			Price:         priceScore(c.UnitPrice, minPrice, maxPrice),
			Speed:         speedScore(c.DeliveryHours, minHours),
			Quality:       qualityScore(c.Rating, c.ReviewsCount),
			Availability:  availabilityScore(c.StockStatus),
			QuantityMatch: quantityMatchScore(c.Quantity, requested),
		}

		warnings := c.Warnings
		if warnings == nil {
			warnings = []string{}
		}

		listing := domain.ScoredListing{
			NormalizedListing: c.NormalizedListing,
			Scores:            scores,
			FinalScore:        clamp(weights.Apply(scores), 0, 100),
			Weights:           weights,
			Warnings:          warnings,
			Flags:             []string{},
		}

		if s.enableDebugLogging {
			log.Printf("[COMPARE] Score %s/%q: price=%.1f speed=%.1f quality=%.1f avail=%.1f qty=%.1f final=%.2f",
				listing.Platform, listing.OriginalName, scores.Price, scores.Speed, scores.Quality,
				scores.Availability, scores.QuantityMatch, listing.FinalScore)
		}

		scored = append(scored, listing)
	}

	return scored
}

func priceScore(unitPrice, minPrice, maxPrice float64) float64 {
	if maxPrice-minPrice <= 0 {
		return 100
	}
	return clamp(100-(unitPrice-minPrice)/(maxPrice-minPrice)*100, 0, 100)
}

func speedScore(hours, minHours float64) float64 {
	return clamp(100-(hours-minHours)/speedWindowHours*100, 0, 100)
}

func qualityScore(rating float64, reviews int) float64 {
	credibility := math.Min(math.Log10(math.Max(float64(reviews), 1)), reviewCredibilityCap)
	return clamp(rating/5*100*(1+credibility/10), 0, 100)
}

func availabilityScore(status domain.StockStatus) float64 {
	if status == domain.StockInStock {
		return 100
	}
	return lowStockAvailability
}

func quantityMatchScore(q domain.Quantity, requested *domain.Quantity) float64 {
	if requested == nil {
		return quantityExactScore
	}
	if !q.Comparable(*requested) {
		return quantityFarScore
	}

	diff := math.Abs(q.Value-requested.Value) / requested.Value
	switch {
	case diff < 1e-9:
		return quantityExactScore
	case diff <= quantityCloseTolerance:
		return quantityCloseScore
	case diff <= quantityNearTolerance:
		return quantityNearScore
	default:
		return quantityFarScore
	}
}
