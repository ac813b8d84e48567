package usecase

import (
	"sort"

	"github.com/gangu/backend/internal/domain"
)

// nearTieMargin is the score difference below which adjacent ranks are a near-tie
const nearTieMargin = 2.0

// Ranker orders scored listings and assigns category flags
type Ranker struct{}

// NewRanker creates a new ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank sorts listings by final score, highest first. Exact ties keep input order.
func (r *Ranker) Rank(scored []domain.ScoredListing) domain.RankedSet {
	ordered := make([]domain.ScoredListing, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FinalScore > ordered[j].FinalScore
	})

	set := domain.RankedSet{Listings: make([]domain.RankedListing, len(ordered))}
	for i, l := range ordered {
		l.Flags = append([]string{}, l.Flags...)
		l.Warnings = append([]string{}, l.Warnings...)
		set.Listings[i] = domain.RankedListing{Rank: i + 1, ScoredListing: l}
	}

	for i := 0; i+1 < len(set.Listings); i++ {
		if set.Listings[i].FinalScore-set.Listings[i+1].FinalScore < nearTieMargin {
			set.Listings[i].NearTie = true
			set.Listings[i+1].NearTie = true
			set.NearTies = append(set.NearTies, [2]int{i + 1, i + 2})
		}
	}

	assignFlags(&set)
	return set
}

func assignFlags(set *domain.RankedSet) {
	listings := set.Listings
	if len(listings) == 0 {
		return
	}

	listings[0].Flags = append(listings[0].Flags, domain.FlagBestOverall)

	if i := cheapestIndex(listings); i >= 0 {
		listings[i].Flags = append(listings[i].Flags, domain.FlagBestPrice)
	}
	if i := fastestIndex(listings); i >= 0 {
		listings[i].Flags = append(listings[i].Flags, domain.FlagFastestDelivery)
	}
	if i := bestQualityIndex(listings); i >= 0 {
		listings[i].Flags = append(listings[i].Flags, domain.FlagBestQuality)
	}

	bestValue, bestRatio := -1, -1.0
	for i := 1; i < len(listings); i++ {
		s := listings[i].Scores
		if s.Price <= 0 {
			continue
		}
		if ratio := s.Quality / s.Price; ratio > bestRatio {
			bestValue, bestRatio = i, ratio
		}
	}
	if bestValue >= 0 {
		listings[bestValue].Flags = append(listings[bestValue].Flags, domain.FlagBestValue)
	}
}

// cheapestIndex returns the index of the lowest unit price; earlier rank wins ties
func cheapestIndex(listings []domain.RankedListing) int {
	best := -1
	for i := range listings {
		if best < 0 || listings[i].UnitPrice < listings[best].UnitPrice {
			best = i
		}
	}
	return best
}

// mostExpensiveIndex returns the index of the highest unit price
func mostExpensiveIndex(listings []domain.RankedListing) int {
	best := -1
	for i := range listings {
		if best < 0 || listings[i].UnitPrice > listings[best].UnitPrice {
			best = i
		}
	}
	return best
}

// fastestIndex returns the index of the shortest delivery
func fastestIndex(listings []domain.RankedListing) int {
	best := -1
	for i := range listings {
		if best < 0 || listings[i].DeliveryHours < listings[best].DeliveryHours {
			best = i
		}
	}
	return best
}

// bestQualityIndex returns the index of the highest rating, ties broken by review count
func bestQualityIndex(listings []domain.RankedListing) int {
	best := -1
	for i := range listings {
		if best < 0 {
			best = i
			continue
		}
		l, b := listings[i], listings[best]
		if l.Rating > b.Rating || (l.Rating == b.Rating && l.ReviewsCount > b.ReviewsCount) {
			best = i
		}
	}
	return best
}

// lowestRatingIndex returns the index of the lowest rating
func lowestRatingIndex(listings []domain.RankedListing) int {
	best := -1
	for i := range listings {
		if best < 0 || listings[i].Rating < listings[best].Rating {
			best = i
		}
	}
	return best
}
