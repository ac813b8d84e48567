package domain

// StockStatus is the canonical stock state of a listing
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockNotListed  StockStatus = "not_listed"
)

// Purchasable reports whether a listing in this state can be ordered at all
func (s StockStatus) Purchasable() bool {
	return s == StockInStock || s == StockLowStock
}

// RawListing is one marketplace result as reported by a platform searcher
type RawListing struct {
	Platform      string   `json:"platform" yaml:"platform"`
	ProductID     string   `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	ItemName      string   `json:"item_name" yaml:"item_name"`
	Brand         string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
	Price         Value    `json:"price" yaml:"price"`
	PriceOverride *float64 `json:"price_override,omitempty" yaml:"price_override,omitempty"`
	Currency      string   `json:"currency,omitempty" yaml:"currency,omitempty"`
	Quantity      Value    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Availability  *bool    `json:"availability,omitempty" yaml:"availability,omitempty"`
	StockStatus   string   `json:"stock_status,omitempty" yaml:"stock_status,omitempty"`
	DeliveryTime  Value    `json:"delivery_time,omitempty" yaml:"delivery_time,omitempty"`
	Rating        Value    `json:"rating,omitempty" yaml:"rating,omitempty"`
	RatingScale   float64  `json:"rating_scale,omitempty" yaml:"rating_scale,omitempty"`
	ReviewsCount  Value    `json:"reviews_count,omitempty" yaml:"reviews_count,omitempty"`
	Seller        string   `json:"seller,omitempty" yaml:"seller,omitempty"`
	URL           string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// Quantity is an amount expressed in a base unit (kg, l, strip, unit, piece)
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Comparable reports whether two quantities share a base unit
func (q Quantity) Comparable(other Quantity) bool {
	return q.Unit == other.Unit && q.Value > 0 && other.Value > 0
}

// NormalizedListing is the canonical form of a raw listing
type NormalizedListing struct {
	Platform       string      `json:"platform"`
	ProductID      string      `json:"product_id,omitempty"`
	OriginalName   string      `json:"original_name"`
	CanonicalName  string      `json:"canonical_name"`
	Brand          string      `json:"brand,omitempty"`
	Category       string      `json:"category"`
	Price          float64     `json:"price"`
	Currency       string      `json:"currency"`
	Quantity       Quantity    `json:"quantity"`
	UnitPrice      float64     `json:"unit_price"`
	UnitPriceLabel string      `json:"unit_price_label"`
	DeliveryHours  float64     `json:"delivery_time_hours"`
	DeliveryLabel  string      `json:"delivery_time_label"`
	DeliveryKnown  bool        `json:"-"`
	Rating         float64     `json:"rating"`
	ReviewsCount   int         `json:"reviews_count"`
	Available      bool        `json:"availability"`
	StockStatus    StockStatus `json:"stock_status"`
	Seller         string      `json:"seller,omitempty"`
	URL            string      `json:"url,omitempty"`
}

// SubScores holds the five per-listing criterion scores, each in [0, 100]
type SubScores struct {
	Price         float64 `json:"price_score"`
	Speed         float64 `json:"delivery_speed_score"`
	Quality       float64 `json:"quality_score"`
	Availability  float64 `json:"availability_score"`
	QuantityMatch float64 `json:"quantity_match_score"`
}

// Weights is the weight vector applied to SubScores; the five weights sum to 1
type Weights struct {
	Price         float64 `json:"price"`
	Speed         float64 `json:"delivery_speed"`
	Quality       float64 `json:"quality"`
	Availability  float64 `json:"availability"`
	QuantityMatch float64 `json:"quantity_match"`
}

// Sum returns the total of all five weights
func (w Weights) Sum() float64 {
	return w.Price + w.Speed + w.Quality + w.Availability + w.QuantityMatch
}

// Apply computes the weighted sum of the given sub-scores
func (w Weights) Apply(s SubScores) float64 {
	return s.Price*w.Price +
		s.Speed*w.Speed +
		s.Quality*w.Quality +
		s.Availability*w.Availability +
		s.QuantityMatch*w.QuantityMatch
}

// ScoredListing is a normalized listing with its score breakdown
type ScoredListing struct {
	NormalizedListing
	Scores     SubScores `json:"breakdown"`
	FinalScore float64   `json:"final_score"`
	Weights    Weights   `json:"weights"`
	Warnings   []string  `json:"warnings"`
	Flags      []string  `json:"flags"`
}

// HasFlag reports whether the listing carries the given category flag
func (s *ScoredListing) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Listing flags assigned by the ranker
const (
	FlagBestOverall     = "best_overall"
	FlagBestPrice       = "best_price"
	FlagFastestDelivery = "fastest_delivery"
	FlagBestQuality     = "best_quality"
	FlagBestValue       = "best_value"
)

// Soft warnings attached to listings that are kept for visibility
const (
	WarningLowRating         = "Low rating"
	WarningFewReviews        = "Few reviews"
	WarningSlowDelivery      = "Slow delivery"
	WarningQuantityMismatch  = "Quantity not an exact match"
	WarningSinglePlatform    = "Single platform"
	WarningMarkedUnavailable = "Marked unavailable"
	WarningQuantityExtreme   = "Quantity far from requested"
	WarningPriceOutlier      = "Unusual price"
	WarningVeryLongDelivery  = "Very long delivery"
	WarningDeliveryUnknown   = "Delivery time unknown"
)
