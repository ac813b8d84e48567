package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

// ComparisonConfig holds configuration for the comparison service
type ComparisonConfig struct {
	Decision           DecisionConfig
	Identity           IdentityConfig
	ElderlyProtection  bool // default when a request leaves it unset
	EnableDebugLogging bool
}

// ComparisonService runs the comparison pipeline:
// normalize -> filter -> score -> rank -> tradeoffs -> decide
type ComparisonService struct {
	normalizer         *Normalizer
	filter             *Filter
	scorer             *Scorer
	ranker             *Ranker
	tradeoffs          *TradeoffDetector
	identity           *IdentityResolver
	engine             *DecisionEngine
	narrator           domain.Narrator
	elderly            bool
	enableDebugLogging bool
}

// NewComparisonService creates the pipeline. narrator may be nil, in which case
// the deterministic narrative is always used.
func NewComparisonService(config ComparisonConfig, narrator domain.Narrator) *ComparisonService {
	config.Decision.EnableDebugLogging = config.Decision.EnableDebugLogging || config.EnableDebugLogging
	config.Identity.EnableDebugLogging = config.Identity.EnableDebugLogging || config.EnableDebugLogging

	return &ComparisonService{
		normalizer:         NewNormalizer(NormalizerConfig{EnableDebugLogging: config.EnableDebugLogging}),
		filter:             NewFilter(config.EnableDebugLogging),
		scorer:             NewScorer(config.EnableDebugLogging),
		ranker:             NewRanker(),
		tradeoffs:          NewTradeoffDetector(),
		identity:           NewIdentityResolver(config.Identity),
		engine:             NewDecisionEngine(config.Decision),
		narrator:           narrator,
		elderly:            config.ElderlyProtection,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Evaluate compares the listings and decides. Only contract violations (missing
// item, unknown urgency) are errors; bad listings and empty sets are reported
// in the result.
func (s *ComparisonService) Evaluate(
	ctx context.Context,
	request domain.ComparisonRequest,
	listings []domain.RawListing,
) (*domain.Evaluation, error) {
	eval, err := s.Compare(request, listings)
	if err != nil {
		return nil, err
	}

	if s.narrator != nil && eval.Decision.Selected != nil {
		narrative, err := s.narrator.Narrate(ctx, eval.Decision, eval.Comparison)
		if err != nil {
			log.Printf("[LLM] Narration failed, keeping template message: %v", err)
		} else if narrative != nil && narrative.SimpleMessage != "" {
			eval.Decision.Explanation = *narrative
		}
	}

	return eval, nil
}

// Compare is the deterministic pipeline. The same input always yields the same output.
func (s *ComparisonService) Compare(
	request domain.ComparisonRequest,
	listings []domain.RawListing,
) (*domain.Evaluation, error) {
	if strings.TrimSpace(request.Item) == "" {
		return nil, fmt.Errorf("%w: item is required", domain.ErrInvalidRequest)
	}

	urgency, err := domain.ParseUrgency(string(request.Urgency))
	if err != nil {
		return nil, err
	}
	request.Urgency = urgency

	category := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(request.Category)), " ", "_")
	if category == "" {
		category = domain.CategoryGrocery
	}
	request.Category = category

	elderly := s.elderly
	if request.ElderlyProtection != nil {
		elderly = *request.ElderlyProtection
	}
	request.ElderlyProtection = &elderly

	var requested *domain.Quantity
	if q, ok := ParseQuantity(request.Quantity); ok {
		requested = &q
	}

	var rejected []domain.FilteredListing
	normalized := make([]domain.NormalizedListing, 0, len(listings))
	for _, raw := range listings {
		l, err := s.normalizer.Normalize(raw)
		if err != nil {
			rejected = append(rejected, domain.FilteredListing{
				Platform: raw.Platform,
				ItemName: raw.ItemName,
				Reason:   err.Error(),
			})
			continue
		}
		normalized = append(normalized, *l)
	}

	filtered := s.filter.Apply(normalized, requested, category, len(normalized) == 1)
	scored := s.scorer.Score(filtered.Candidates, requested, urgency)
	ranked := s.ranker.Rank(scored)
	tradeoffs := s.tradeoffs.Detect(&ranked)
	ExplainRanked(&ranked, tradeoffs)

	decision := s.engine.Decide(DecisionInput{
		Ranked:            &ranked,
		Tradeoffs:         tradeoffs,
		Urgency:           urgency,
		ElderlyProtection: elderly,
	})

	removed := append(rejected, filtered.Removed...)
	if removed == nil {
		removed = []domain.FilteredListing{}
	}

	result := &domain.ComparisonResult{
		Request: request,
		Summary: domain.ComparisonSummary{
			TotalReceived:   len(listings),
			AfterFiltering:  ranked.Len(),
			FilteredOut:     len(removed),
			FilteredReasons: removed,
			Urgency:         urgency,
			Weights:         WeightsFor(urgency),
			SingleOption:    ranked.Len() == 1,
		},
		Ranked: ranked,
		Insights: domain.ComparisonInsights{
			PriceRange:               priceRange(ranked.Listings),
			DeliveryRange:            deliveryRange(ranked.Listings),
			QualityRange:             qualityRange(ranked.Listings),
			DetectedTradeoffs:        tradeoffs,
			IdentityGroups:           s.identity.Group(ranked.Listings),
			RecommendationConfidence: decision.Confidence,
		},
	}

	log.Printf("[COMPARE] item=%q urgency=%s received=%d kept=%d filtered=%d tradeoffs=%d",
		request.Item, urgency, len(listings), ranked.Len(), len(removed), len(tradeoffs))

	return &domain.Evaluation{Comparison: result, Decision: decision}, nil
}

func priceRange(listings []domain.RankedListing) domain.PriceRange {
	if len(listings) == 0 {
		return domain.PriceRange{}
	}

	// ranges are reported in the unit of the top option
	unit := listings[0].Quantity.Unit
	var prices []float64
	for _, l := range listings {
		if l.Quantity.Unit == unit {
			prices = append(prices, l.UnitPrice)
		}
	}

	r := domain.PriceRange{Min: math.Inf(1), Max: math.Inf(-1), Unit: unit, Median: median(prices)}
	for _, p := range prices {
		r.Min = math.Min(r.Min, p)
		r.Max = math.Max(r.Max, p)
	}
	return r
}

func deliveryRange(listings []domain.RankedListing) domain.DeliveryRange {
	if len(listings) == 0 {
		return domain.DeliveryRange{}
	}

	hours := make([]float64, 0, len(listings))
	r := domain.DeliveryRange{FastestHours: math.Inf(1), SlowestHours: math.Inf(-1)}
	for _, l := range listings {
		hours = append(hours, l.DeliveryHours)
		r.FastestHours = math.Min(r.FastestHours, l.DeliveryHours)
		r.SlowestHours = math.Max(r.SlowestHours, l.DeliveryHours)
	}
	r.MedianHours = median(hours)
	return r
}

func qualityRange(listings []domain.RankedListing) domain.QualityRange {
	if len(listings) == 0 {
		return domain.QualityRange{}
	}

	r := domain.QualityRange{Highest: math.Inf(-1), Lowest: math.Inf(1)}
	var sum float64
	for _, l := range listings {
		r.Highest = math.Max(r.Highest, l.Rating)
		r.Lowest = math.Min(r.Lowest, l.Rating)
		sum += l.Rating
	}
	r.Average = math.Round(sum/float64(len(listings))*100) / 100
	return r
}
