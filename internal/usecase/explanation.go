package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

type contribution struct {
	dimension string
	value     float64
}

// ExplainRanked writes the human-readable explanation of every ranked listing:
// "Ranked #N because {primary} with {secondary}. {tradeoff note}"
func ExplainRanked(set *domain.RankedSet, tradeoffs []domain.Tradeoff) {
	for i := range set.Listings {
		l := &set.Listings[i]
		dims := contributions(&l.ScoredListing)

		var b strings.Builder
		fmt.Fprintf(&b, "Ranked #%d because %s with %s.", l.Rank, primaryPhrase(l, dims[0].dimension), secondaryPhrase(l, dims[1].dimension))
		if note := tradeoffNote(l, tradeoffs); note != "" {
			b.WriteString(" ")
			b.WriteString(note)
		}
		l.Explanation = b.String()
	}
}

// contributions returns the weighted sub-scores, largest first
func contributions(l *domain.ScoredListing) []contribution {
	s, w := l.Scores, l.Weights
	dims := []contribution{
		{"price", s.Price * w.Price},
		{"speed", s.Speed * w.Speed},
		{"quality", s.Quality * w.Quality},
		{"availability", s.Availability * w.Availability},
		{"quantity", s.QuantityMatch * w.QuantityMatch},
	}
	sort.SliceStable(dims, func(i, j int) bool {
		return dims[i].value > dims[j].value
	})
	return dims
}

func primaryPhrase(l *domain.RankedListing, dimension string) string {
	switch dimension {
	case "price":
		if l.HasFlag(domain.FlagBestPrice) {
			return fmt.Sprintf("it offers the lowest unit price (%s)", l.UnitPriceLabel)
		}
		return fmt.Sprintf("it offers a competitive unit price (%s)", l.UnitPriceLabel)
	case "speed":
		if l.HasFlag(domain.FlagFastestDelivery) {
			return fmt.Sprintf("it has the fastest delivery (%s)", l.DeliveryLabel)
		}
		return fmt.Sprintf("it delivers in %s", l.DeliveryLabel)
	case "quality":
		if l.HasFlag(domain.FlagBestQuality) {
			return fmt.Sprintf("it has the best quality rating (%.1f★)", l.Rating)
		}
		return fmt.Sprintf("it has a good quality rating (%.1f★)", l.Rating)
	case "availability":
		if l.StockStatus == domain.StockInStock {
			return "it is in stock"
		}
		return "it is available in limited stock"
	default:
		return "it matches the requested quantity"
	}
}

func secondaryPhrase(l *domain.RankedListing, dimension string) string {
	switch dimension {
	case "price":
		return fmt.Sprintf("a unit price of %s", l.UnitPriceLabel)
	case "speed":
		return fmt.Sprintf("delivery in %s", l.DeliveryLabel)
	case "quality":
		return fmt.Sprintf("a %.1f★ rating from %d reviews", l.Rating, l.ReviewsCount)
	case "availability":
		if l.StockStatus == domain.StockInStock {
			return "good availability"
		}
		return "limited stock"
	default:
		return "a close quantity match"
	}
}

func tradeoffNote(l *domain.RankedListing, tradeoffs []domain.Tradeoff) string {
	for _, t := range tradeoffs {
		if !involves(t, l.Rank) {
			continue
		}
		switch t.Type {
		case domain.TradeoffPriceVsSpeed:
			if l.HasFlag(domain.FlagBestPrice) {
				return "Cheapest, but slower to arrive."
			}
			return "Faster, but costs more."
		case domain.TradeoffSpeedVsQuality:
			return "Fast, but lower rated."
		case domain.TradeoffQualityVsPrice:
			return "Best quality at a premium price."
		case domain.TradeoffAvailabilityRisk:
			return "Stock is limited."
		}
	}
	if l.HasFlag(domain.FlagBestValue) {
		return "Best value for money."
	}
	return ""
}

func involves(t domain.Tradeoff, rank int) bool {
	for _, r := range t.ProductsInvolved {
		if r == rank {
			return true
		}
	}
	return false
}

// BuildNarrative produces the plain-language message for a decision
func BuildNarrative(d *domain.Decision) domain.Narrative {
	if d.Selected == nil {
		return domain.Narrative{
			SimpleMessage: "Sorry, I could not find a good option right now. Shall I try again later?",
			WhyThisOption: d.Reasoning.PrimaryReason,
			WhatUserGets:  "Nothing will be ordered.",
		}
	}

	s := d.Selected
	n := domain.Narrative{
		WhyThisOption: d.Reasoning.PrimaryReason,
		WhatUserGets: fmt.Sprintf("%s for ₹%.2f, delivery in %s, rated %.1f★ by %d shoppers.",
			s.OriginalName, s.Price, s.DeliveryLabel, s.Rating, s.ReviewsCount),
	}

	switch d.Type {
	case domain.DecisionAutoBuy:
		n.SimpleMessage = fmt.Sprintf("I am ordering %s from %s for ₹%.2f. It should arrive in %s.",
			s.OriginalName, s.Platform, s.Price, s.DeliveryLabel)
	case domain.DecisionClarifyNeeded:
		concern := "something needs checking"
		if len(d.Reasoning.RisksIdentified) > 0 {
			concern = strings.ToLower(d.Reasoning.RisksIdentified[0])
		}
		n.SimpleMessage = fmt.Sprintf("I found %s on %s, but %s. Do you still want it?",
			s.OriginalName, s.Platform, concern)
	default:
		n.SimpleMessage = fmt.Sprintf("I found %s on %s for ₹%.2f. Shall I order it?",
			s.OriginalName, s.Platform, s.Price)
	}
	return n
}
