package usecase

import (
	"fmt"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

// TradeoffDetector scans a ranked set for known conflict patterns
type TradeoffDetector struct{}

// NewTradeoffDetector creates a new tradeoff detector
func NewTradeoffDetector() *TradeoffDetector {
	return &TradeoffDetector{}
}

// Detect evaluates every rule independently; several tradeoffs can co-occur.
// The pairwise rules need at least two listings; stock risk applies to a lone listing too.
func (d *TradeoffDetector) Detect(set *domain.RankedSet) []domain.Tradeoff {
	tradeoffs := []domain.Tradeoff{}
	listings := set.Listings
	if len(listings) >= 2 {
		tradeoffs = append(tradeoffs, pairwiseTradeoffs(listings)...)
	}
	if t, ok := availabilityRisk(listings); ok {
		tradeoffs = append(tradeoffs, t)
	}
	return tradeoffs
}

func pairwiseTradeoffs(listings []domain.RankedListing) []domain.Tradeoff {
	var tradeoffs []domain.Tradeoff

	cheapest := &listings[cheapestIndex(listings)]
	expensive := &listings[mostExpensiveIndex(listings)]
	fastest := &listings[fastestIndex(listings)]
	bestQuality := &listings[bestQualityIndex(listings)]
	worstQuality := &listings[lowestRatingIndex(listings)]

	if cheapest.Rank != fastest.Rank && cheapest.DeliveryHours > fastest.DeliveryHours {
		tradeoffs = append(tradeoffs, domain.Tradeoff{
			Type: domain.TradeoffPriceVsSpeed,
			Description: fmt.Sprintf("Cheapest option (#%d, %s) takes %s; fastest (#%d, %s) costs %s",
				cheapest.Rank, cheapest.UnitPriceLabel, cheapest.DeliveryLabel,
				fastest.Rank, fastest.DeliveryLabel, fastest.UnitPriceLabel),
			ProductsInvolved: []int{cheapest.Rank, fastest.Rank},
		})
	}

	if fastest.Rating == worstQuality.Rating && worstQuality.Rating < bestQuality.Rating {
		tradeoffs = append(tradeoffs, domain.Tradeoff{
			Type: domain.TradeoffSpeedVsQuality,
			Description: fmt.Sprintf("Fastest delivery (#%d) has the lowest quality rating (%.1f★)",
				fastest.Rank, fastest.Rating),
			ProductsInvolved: []int{fastest.Rank},
		})
	}

	if bestQuality.UnitPrice == expensive.UnitPrice && expensive.UnitPrice > cheapest.UnitPrice {
		tradeoffs = append(tradeoffs, domain.Tradeoff{
			Type: domain.TradeoffQualityVsPrice,
			Description: fmt.Sprintf("Best quality (#%d, %.1f★) comes at the highest unit price (%s)",
				bestQuality.Rank, bestQuality.Rating, bestQuality.UnitPriceLabel),
			ProductsInvolved: []int{bestQuality.Rank},
		})
	}

	return tradeoffs
}

// availabilityRisk flags low-stock listings among the top two
func availabilityRisk(listings []domain.RankedListing) (domain.Tradeoff, bool) {
	var ranks []int
	var notes []string
	for _, l := range listings[:min(2, len(listings))] {
		if l.StockStatus != domain.StockLowStock {
			continue
		}
		ranks = append(ranks, l.Rank)
		if l.Rank == 1 {
			notes = append(notes, "Top choice #1 has limited stock")
		} else {
			notes = append(notes, fmt.Sprintf("#%d has limited stock", l.Rank))
		}
	}
	if len(ranks) == 0 {
		return domain.Tradeoff{}, false
	}

	return domain.Tradeoff{
		Type:             domain.TradeoffAvailabilityRisk,
		Description:      strings.Join(notes, "; "),
		ProductsInvolved: ranks,
	}, true
}
