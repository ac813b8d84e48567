package domain

import (
	"fmt"
	"strings"
)

// Urgency is the caller-supplied signal that reweights scoring and decision policy
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyNormal Urgency = "normal"
	UrgencyLow    Urgency = "low"
)

// ParseUrgency maps a request string to an Urgency. Empty input means normal;
// anything else outside the four levels is a contract violation.
func ParseUrgency(s string) (Urgency, error) {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return UrgencyNormal, nil
	case UrgencyUrgent:
		return UrgencyUrgent, nil
	case UrgencyHigh:
		return UrgencyHigh, nil
	case UrgencyNormal:
		return UrgencyNormal, nil
	case UrgencyLow:
		return UrgencyLow, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
}

// Category values understood by the filter
const (
	CategoryGrocery        = "grocery"
	CategoryMedicine       = "medicine"
	CategoryDailyEssential = "daily_essential"
)

// ComparisonRequest is the envelope that accompanies a set of raw listings.
// A nil ElderlyProtection uses the configured default.
type ComparisonRequest struct {
	Item              string  `json:"item" yaml:"item" binding:"required"`
	Quantity          string  `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Urgency           Urgency `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	Category          string  `json:"category,omitempty" yaml:"category,omitempty"`
	ElderlyProtection *bool   `json:"elderly_protection,omitempty" yaml:"elderly_protection,omitempty"`
}

// FilteredListing records a listing that was dropped and why
type FilteredListing struct {
	Platform string `json:"platform"`
	ItemName string `json:"item_name"`
	Reason   string `json:"reason"`
}

// TradeoffType names a known conflict pattern
type TradeoffType string

const (
	TradeoffPriceVsSpeed     TradeoffType = "price_vs_speed"
	TradeoffSpeedVsQuality   TradeoffType = "speed_vs_quality"
	TradeoffQualityVsPrice   TradeoffType = "quality_vs_price"
	TradeoffAvailabilityRisk TradeoffType = "availability_risk"
)

// Tradeoff is a detected conflict between two desirable properties
type Tradeoff struct {
	Type             TradeoffType `json:"type"`
	Description      string       `json:"description"`
	ProductsInvolved []int        `json:"products_involved"`
}

// RankedListing is a scored listing with its position in the ranked set
type RankedListing struct {
	Rank int `json:"rank"`
	ScoredListing
	NearTie     bool   `json:"near_tie,omitempty"`
	Explanation string `json:"explanation"`
}

// RankedSet is the ordered output of the ranker
type RankedSet struct {
	Listings []RankedListing `json:"ranked_products"`
	// NearTies holds pairs of adjacent ranks whose scores differ by less than the tie margin
	NearTies [][2]int `json:"near_ties,omitempty"`
}

// Len returns the number of ranked listings
func (r *RankedSet) Len() int {
	return len(r.Listings)
}

// ByRank returns the listing at a 1-based rank, or nil
func (r *RankedSet) ByRank(rank int) *RankedListing {
	if rank < 1 || rank > len(r.Listings) {
		return nil
	}
	return &r.Listings[rank-1]
}

// ComparisonSummary reports what happened to the input set
type ComparisonSummary struct {
	TotalReceived   int               `json:"total_products_received"`
	AfterFiltering  int               `json:"products_after_filtering"`
	FilteredOut     int               `json:"filtered_out_count"`
	FilteredReasons []FilteredListing `json:"filtered_reasons"`
	Urgency         Urgency           `json:"urgency_level"`
	Weights         Weights           `json:"weights_applied"`
	SingleOption    bool              `json:"single_option"`
}

// PriceRange summarizes unit prices across the ranked set
type PriceRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Unit   string  `json:"unit"`
}

// DeliveryRange summarizes delivery times across the ranked set
type DeliveryRange struct {
	FastestHours float64 `json:"fastest_hours"`
	SlowestHours float64 `json:"slowest_hours"`
	MedianHours  float64 `json:"median_hours"`
}

// QualityRange summarizes ratings across the ranked set
type QualityRange struct {
	Highest float64 `json:"highest_rating"`
	Lowest  float64 `json:"lowest_rating"`
	Average float64 `json:"average_rating"`
}

// IdentityGroup lists ranked listings recognised as the same product
type IdentityGroup struct {
	CanonicalName string   `json:"canonical_name"`
	Platforms     []string `json:"platforms"`
	Ranks         []int    `json:"ranks"`
}

// ComparisonInsights aggregates the ranked set
type ComparisonInsights struct {
	PriceRange               PriceRange      `json:"price_range"`
	DeliveryRange            DeliveryRange   `json:"delivery_range"`
	QualityRange             QualityRange    `json:"quality_range"`
	DetectedTradeoffs        []Tradeoff      `json:"detected_tradeoffs"`
	IdentityGroups           []IdentityGroup `json:"identity_groups,omitempty"`
	RecommendationConfidence ConfidenceLevel `json:"recommendation_confidence"`
}

// ComparisonResult is the full output of the comparison pipeline
type ComparisonResult struct {
	Request  ComparisonRequest  `json:"request"`
	Summary  ComparisonSummary  `json:"comparison_summary"`
	Ranked   RankedSet          `json:"ranked"`
	Insights ComparisonInsights `json:"comparison_insights"`
}
