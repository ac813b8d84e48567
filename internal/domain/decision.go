package domain

// DecisionType is the terminal classification of a decision
type DecisionType string

const (
	DecisionAutoBuy         DecisionType = "auto_buy"
	DecisionConfirmWithUser DecisionType = "confirm_with_user"
	DecisionClarifyNeeded   DecisionType = "clarify_needed"
	DecisionNoGoodOption    DecisionType = "no_good_option"
)

// ConfidenceLevel is derived from the selected listing's final score
type ConfidenceLevel string

const (
	ConfidenceNone     ConfidenceLevel = "none"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// RiskLevel is a best-effort estimate from comparison-stage signals
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Policy identifiers recorded in the reasoning bundle
const (
	PolicyAvailabilityGuard = "policy_1_availability_guard"
	PolicyConfidence        = "policy_2_confidence_threshold"
	PolicyScoreGap          = "policy_3_score_gap"
	PolicyTradeoffPriority  = "policy_4_tradeoff_priority"
	PolicyRiskLeveling      = "policy_5_risk_leveling"
	PolicyUrgencyOverride   = "policy_6_urgency_override"
	PolicyElderlyProtection = "policy_7_elderly_protection"
	PolicyNoCandidate       = "policy_8_no_candidate"
)

// Reasoning is the structured explanation of a decision
type Reasoning struct {
	PrimaryReason       string   `json:"primary_reason"`
	SupportingFactors   []string `json:"supporting_factors"`
	TradeoffsConsidered []string `json:"tradeoffs_considered"`
	RisksIdentified     []string `json:"risks_identified"`
	PoliciesTriggered   []string `json:"policies_triggered"`
}

// Narrative is the plain-language message shown to the user
type Narrative struct {
	SimpleMessage string `json:"simple_message" jsonschema:"title=Simple message,description=One or two short sentences an elderly shopper can understand."`
	WhyThisOption string `json:"why_this_option" jsonschema:"title=Why this option,description=Why this listing was chosen."`
	WhatUserGets  string `json:"what_user_gets" jsonschema:"title=What the user gets,description=Price delivery and quality summary."`
}

// Action values for NextAction
const (
	ActionPurchase = "purchase"
	ActionConfirm  = "confirm"
	ActionClarify  = "clarify"
	ActionNotify   = "notify"
)

// NextAction tells the caller what should happen with the decision
type NextAction struct {
	Action                   string  `json:"action"`
	UserConfirmationRequired bool    `json:"user_confirmation_required"`
	ConfirmationMessage      string  `json:"confirmation_message,omitempty"`
	Platform                 string  `json:"platform,omitempty"`
	EstimatedTotal           float64 `json:"estimated_total,omitempty"`
}

// Decision is the terminal artifact of the decision policy engine
type Decision struct {
	Type            DecisionType    `json:"decision_type"`
	Confidence      ConfidenceLevel `json:"confidence_level"`
	Risk            RiskLevel       `json:"risk_level"`
	Selected        *RankedListing  `json:"selected_option"`
	Fallbacks       []RankedListing `json:"fallback_options"`
	ScoreGap        *float64        `json:"score_gap,omitempty"`
	PrimaryTradeoff *Tradeoff       `json:"primary_tradeoff,omitempty"`
	Reasoning       Reasoning       `json:"decision_reasoning"`
	Explanation     Narrative       `json:"explanation_for_user"`
	NextAction      NextAction      `json:"next_action"`
}

// Evaluation bundles a comparison with the decision taken on it
type Evaluation struct {
	Comparison *ComparisonResult `json:"comparison"`
	Decision   *Decision         `json:"decision"`
}
