package usecase

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

// Decision policy thresholds
const (
	lowConfidenceBelow    = 30.0
	mediumConfidenceBelow = 60.0
	highConfidenceUpTo    = 85.0
	clearGap              = 5.0  // below this the top two are too close to call
	moderateGapBelow      = 10.0 // between clearGap and this, elderly users confirm
	highUrgencyGap        = 15.0
	priceDeviationLimit   = 0.5
	maxFallbacks          = 2
	defaultHighValue      = 500.0
)

// DefaultKnownPlatforms are the marketplaces the engine trusts for auto-buy
var DefaultKnownPlatforms = []string{
	"zepto", "amazon", "blinkit", "bigbasket", "swiggy instamart", "jiomart", "flipkart",
}

// DecisionConfig holds configuration for the decision engine
type DecisionConfig struct {
	// KnownPlatforms lists trusted platforms; empty trusts every platform
	KnownPlatforms     []string
	HighValueThreshold float64
	EnableDebugLogging bool
}

// DecisionEngine applies the ordered decision policies to a ranked set
type DecisionEngine struct {
	knownPlatforms     map[string]bool
	highValueThreshold float64
	enableDebugLogging bool
}

// NewDecisionEngine creates a decision engine with the given configuration
func NewDecisionEngine(config DecisionConfig) *DecisionEngine {
	known := make(map[string]bool, len(config.KnownPlatforms))
	for _, p := range config.KnownPlatforms {
		known[normalizePlatform(p)] = true
	}

	threshold := config.HighValueThreshold
	if threshold <= 0 {
		threshold = defaultHighValue
	}

	return &DecisionEngine{
		knownPlatforms:     known,
		highValueThreshold: threshold,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// DecisionInput is everything the engine needs for one request
type DecisionInput struct {
	Ranked            *domain.RankedSet
	Tradeoffs         []domain.Tradeoff
	Urgency           domain.Urgency
	ElderlyProtection bool
}

// Decide picks a decision type, a selected listing and fallbacks.
// It never fails: an empty set is the no_good_option terminal.
func (e *DecisionEngine) Decide(in DecisionInput) *domain.Decision {
	d := &domain.Decision{
		Fallbacks: []domain.RankedListing{},
		Reasoning: domain.Reasoning{
			SupportingFactors:   []string{},
			TradeoffsConsidered: []string{},
			RisksIdentified:     []string{},
			PoliciesTriggered:   []string{},
		},
	}

	var listings []domain.RankedListing
	if in.Ranked != nil {
		listings = in.Ranked.Listings
	}

	if len(listings) == 0 {
		return e.noGoodOption(d, "No listings survived filtering")
	}

	// Policy 1: skip anything that cannot be ordered
	var eligible []domain.RankedListing
	for _, l := range listings {
		if l.StockStatus.Purchasable() {
			eligible = append(eligible, l)
		}
	}
	if !listings[0].StockStatus.Purchasable() {
		d.Reasoning.PoliciesTriggered = append(d.Reasoning.PoliciesTriggered, domain.PolicyAvailabilityGuard)
		d.Reasoning.SupportingFactors = append(d.Reasoning.SupportingFactors,
			fmt.Sprintf("Skipped #1 because it is %s", listings[0].StockStatus))
	}
	if len(eligible) == 0 {
		return e.noGoodOption(d, "No listing can be ordered right now")
	}

	candidate := eligible[0]
	d.Selected = &candidate
	for i := 1; i < len(eligible) && len(d.Fallbacks) < maxFallbacks; i++ {
		d.Fallbacks = append(d.Fallbacks, eligible[i])
	}

	var gap *float64
	if len(eligible) > 1 {
		g := candidate.FinalScore - eligible[1].FinalScore
		gap = &g
		d.ScoreGap = gap
	}

	d.Confidence = confidenceBand(candidate.FinalScore)
	d.Risk, d.Reasoning.RisksIdentified = e.assessRisk(&candidate, listings)

	// Policy 4: pick the tradeoff that matters most for this urgency
	if ordered := prioritizeTradeoffs(in.Tradeoffs, in.Urgency); len(ordered) > 0 {
		primary := ordered[0]
		d.PrimaryTradeoff = &primary
		for _, t := range ordered {
			d.Reasoning.TradeoffsConsidered = append(d.Reasoning.TradeoffsConsidered, t.Description)
		}
		d.Reasoning.PoliciesTriggered = append(d.Reasoning.PoliciesTriggered, domain.PolicyTradeoffPriority)
	}

	d.Reasoning.SupportingFactors = append(d.Reasoning.SupportingFactors, supportingFactors(&candidate, gap, d.Confidence)...)

	e.applyPolicies(d, &candidate, gap, in)
	if d.Confidence == domain.ConfidenceMedium {
		d.Reasoning.SupportingFactors = append(d.Reasoning.SupportingFactors, moderateMatchCaveat)
	}
	d.NextAction = nextAction(d)
	d.Explanation = BuildNarrative(d)

	log.Printf("[DECIDE] decision=%s confidence=%s risk=%s selected=%s/%q policies=%v",
		d.Type, d.Confidence, d.Risk, candidate.Platform, candidate.OriginalName, d.Reasoning.PoliciesTriggered)

	return d
}

const moderateMatchCaveat = "Caveat: the best option is only a moderate match"

// applyPolicies resolves the decision type. Order matters: high risk can never
// auto-buy, urgency overrides the score gap, and anything left ambiguous confirms.
func (e *DecisionEngine) applyPolicies(d *domain.Decision, c *domain.RankedListing, gap *float64, in DecisionInput) {
	trigger := func(decision domain.DecisionType, reason string, policies ...string) {
		d.Type = decision
		d.Reasoning.PrimaryReason = reason
		d.Reasoning.PoliciesTriggered = append(d.Reasoning.PoliciesTriggered, policies...)
	}

	switch {
	case d.Risk == domain.RiskHigh:
		trigger(domain.DecisionClarifyNeeded,
			"Risk is too high to buy without checking: "+strings.Join(d.Reasoning.RisksIdentified, "; "),
			domain.PolicyRiskLeveling)

	case in.Urgency == domain.UrgencyUrgent:
		trigger(domain.DecisionAutoBuy,
			fmt.Sprintf("Urgent request: ordering the top option (score %.1f) without waiting", c.FinalScore),
			domain.PolicyUrgencyOverride)

	case in.Urgency == domain.UrgencyHigh && gap != nil && *gap > highUrgencyGap:
		trigger(domain.DecisionAutoBuy,
			fmt.Sprintf("High urgency and a clear lead of %.1f points", *gap),
			domain.PolicyUrgencyOverride)

	case d.Confidence == domain.ConfidenceLow:
		trigger(domain.DecisionClarifyNeeded,
			fmt.Sprintf("Best option scores only %.1f, too low to choose confidently", c.FinalScore),
			domain.PolicyConfidence)

	case d.Risk == domain.RiskMedium:
		trigger(domain.DecisionConfirmWithUser,
			"Some risk found, asking before buying: "+strings.Join(d.Reasoning.RisksIdentified, "; "),
			domain.PolicyRiskLeveling)

	case d.Confidence == domain.ConfidenceMedium:
		trigger(domain.DecisionConfirmWithUser,
			fmt.Sprintf("Moderate confidence (score %.1f); the choice should be checked", c.FinalScore),
			domain.PolicyConfidence)

	case gap != nil && *gap >= clearGap:
		if in.ElderlyProtection && c.Price > e.highValueThreshold {
			trigger(domain.DecisionConfirmWithUser,
				fmt.Sprintf("Price ₹%.2f is above ₹%.0f, confirming before buying", c.Price, e.highValueThreshold),
				domain.PolicyScoreGap, domain.PolicyElderlyProtection)
			return
		}
		if in.ElderlyProtection && *gap < moderateGapBelow {
			trigger(domain.DecisionConfirmWithUser,
				fmt.Sprintf("Lead of %.1f points is only moderate, confirming before buying", *gap),
				domain.PolicyScoreGap, domain.PolicyElderlyProtection)
			return
		}
		trigger(domain.DecisionAutoBuy,
			fmt.Sprintf("Clear winner with a %.1f point lead and low risk", *gap),
			domain.PolicyScoreGap)

	case gap != nil:
		trigger(domain.DecisionConfirmWithUser,
			fmt.Sprintf("Top options are only %.1f points apart", *gap),
			domain.PolicyScoreGap, domain.PolicyElderlyProtection)

	default:
		trigger(domain.DecisionConfirmWithUser,
			"Only one option was found, confirming before buying",
			domain.PolicyElderlyProtection)
	}
}

func (e *DecisionEngine) noGoodOption(d *domain.Decision, reason string) *domain.Decision {
	d.Type = domain.DecisionNoGoodOption
	d.Confidence = domain.ConfidenceNone
	d.Risk = domain.RiskNone
	d.Selected = nil
	d.Fallbacks = []domain.RankedListing{}
	d.Reasoning.PrimaryReason = reason
	d.Reasoning.PoliciesTriggered = append(d.Reasoning.PoliciesTriggered, domain.PolicyNoCandidate)
	d.NextAction = nextAction(d)
	d.Explanation = BuildNarrative(d)

	log.Printf("[DECIDE] decision=%s reason=%q", d.Type, reason)
	return d
}

// assessRisk estimates risk from signals already known at comparison time
func (e *DecisionEngine) assessRisk(c *domain.RankedListing, listings []domain.RankedListing) (domain.RiskLevel, []string) {
	risks := []string{}
	high := false

	if len(c.Warnings) >= 2 {
		high = true
		risks = append(risks, "Multiple warnings: "+strings.Join(c.Warnings, ", "))
	}
	if c.Rating < lowRatingThreshold {
		high = true
		risks = append(risks, fmt.Sprintf("Low rating (%.1f★)", c.Rating))
	}
	if !e.isKnownPlatform(c.Platform) {
		high = true
		risks = append(risks, fmt.Sprintf("Unknown platform %q", c.Platform))
	}
	if high {
		return domain.RiskHigh, risks
	}

	medium := false
	if len(c.Warnings) == 1 {
		medium = true
		risks = append(risks, "Warning: "+c.Warnings[0])
	}
	if c.StockStatus == domain.StockLowStock {
		medium = true
		risks = append(risks, "Limited stock")
	}

	var prices []float64
	for _, l := range listings {
		if l.Quantity.Unit == c.Quantity.Unit {
			prices = append(prices, l.UnitPrice)
		}
	}
	if m := median(prices); m > 0 {
		if dev := math.Abs(c.UnitPrice-m) / m; dev > priceDeviationLimit {
			medium = true
			risks = append(risks, fmt.Sprintf("Price is %.0f%% away from the typical price", dev*100))
		}
	}

	if medium {
		return domain.RiskMedium, risks
	}
	return domain.RiskLow, risks
}

func (e *DecisionEngine) isKnownPlatform(platform string) bool {
	if len(e.knownPlatforms) == 0 {
		return true
	}
	return e.knownPlatforms[normalizePlatform(platform)]
}

func normalizePlatform(p string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(p, "_", " "))), " ")
}

func confidenceBand(score float64) domain.ConfidenceLevel {
	switch {
	case score < lowConfidenceBelow:
		return domain.ConfidenceLow
	case score < mediumConfidenceBelow:
		return domain.ConfidenceMedium
	case score <= highConfidenceUpTo:
		return domain.ConfidenceHigh
	default:
		return domain.ConfidenceVeryHigh
	}
}

// dimension priorities per urgency; lower is more important
var tradeoffPriorities = map[domain.Urgency]map[string]int{
	domain.UrgencyUrgent: {"speed": 0, "price": 1, "quality": 2},
	domain.UrgencyHigh:   {"speed": 0, "price": 0, "quality": 1},
	domain.UrgencyNormal: {"price": 0, "quality": 1, "speed": 2},
	domain.UrgencyLow:    {"price": 0, "quality": 1, "speed": 2},
}

var tradeoffDimensions = map[domain.TradeoffType][2]string{
	domain.TradeoffPriceVsSpeed:   {"price", "speed"},
	domain.TradeoffSpeedVsQuality: {"speed", "quality"},
	domain.TradeoffQualityVsPrice: {"quality", "price"},
}

// prioritizeTradeoffs orders tradeoffs by how much their dimensions matter at
// this urgency. Availability risk always comes last.
func prioritizeTradeoffs(tradeoffs []domain.Tradeoff, urgency domain.Urgency) []domain.Tradeoff {
	priorities, ok := tradeoffPriorities[urgency]
	if !ok {
		priorities = tradeoffPriorities[domain.UrgencyNormal]
	}

	key := func(t domain.Tradeoff) [2]int {
		dims, ok := tradeoffDimensions[t.Type]
		if !ok {
			return [2]int{math.MaxInt32, math.MaxInt32}
		}
		a, b := priorities[dims[0]], priorities[dims[1]]
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}

	ordered := append([]domain.Tradeoff(nil), tradeoffs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ki, kj := key(ordered[i]), key(ordered[j])
		if ki[0] != kj[0] {
			return ki[0] < kj[0]
		}
		return ki[1] < kj[1]
	})
	return ordered
}

func supportingFactors(c *domain.RankedListing, gap *float64, confidence domain.ConfidenceLevel) []string {
	factors := []string{
		fmt.Sprintf("Final score %.1f (%s confidence)", c.FinalScore, confidence),
	}
	if gap != nil {
		factors = append(factors, fmt.Sprintf("Lead over the next option: %.1f points", *gap))
	}
	for _, flag := range c.Flags {
		factors = append(factors, "Flagged "+flag)
	}
	return factors
}

func nextAction(d *domain.Decision) domain.NextAction {
	if d.Selected == nil {
		return domain.NextAction{
			Action:              domain.ActionNotify,
			ConfirmationMessage: "No suitable option was found. Try again later or change the request.",
		}
	}

	s := d.Selected
	action := domain.NextAction{
		Platform:       s.Platform,
		EstimatedTotal: s.Price,
	}

	switch d.Type {
	case domain.DecisionAutoBuy:
		action.Action = domain.ActionPurchase
	case domain.DecisionClarifyNeeded:
		action.Action = domain.ActionClarify
		action.UserConfirmationRequired = true
		action.ConfirmationMessage = fmt.Sprintf("%s on %s has some concerns. Should I still buy it, or look for something else?",
			s.OriginalName, s.Platform)
	default:
		action.Action = domain.ActionConfirm
		action.UserConfirmationRequired = true
		action.ConfirmationMessage = fmt.Sprintf("Buy %s from %s for ₹%.2f? Delivery: %s.",
			s.OriginalName, s.Platform, s.Price, s.DeliveryLabel)
	}
	return action
}
