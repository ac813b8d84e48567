package domain

import "time"

// SearchQuery is what the grocery service sends to each platform
type SearchQuery struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity,omitempty"`
	Category string `json:"category,omitempty"`
}

// PlatformError records a platform that failed during a fan-out search
type PlatformError struct {
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPlaced    OrderStatus = "placed"
	OrderFailed    OrderStatus = "failed"
	OrderDuplicate OrderStatus = "duplicate"
)

// OrderRequest is sent to a purchase executor
type OrderRequest struct {
	IdempotencyKey string  `json:"idempotency_key"`
	UserID         string  `json:"user_id"`
	Platform       string  `json:"platform"`
	ProductID      string  `json:"product_id"`
	ItemName       string  `json:"item_name"`
	Quantity       int     `json:"quantity"`
	ExpectedPrice  float64 `json:"expected_price"`
}

// OrderConfirmation is returned by a purchase executor on success
type OrderConfirmation struct {
	OrderID           string  `json:"order_id"`
	Platform          string  `json:"platform"`
	FinalPrice        float64 `json:"final_price"`
	EstimatedDelivery string  `json:"estimated_delivery,omitempty"`
}

// OrderRecord is a persisted order
type OrderRecord struct {
	ID             string      `json:"id" db:"id"`
	IdempotencyKey string      `json:"idempotency_key" db:"idempotency_key"`
	UserID         string      `json:"user_id" db:"user_id"`
	Platform       string      `json:"platform" db:"platform"`
	ProductID      string      `json:"product_id" db:"product_id"`
	ItemName       string      `json:"item_name" db:"item_name"`
	Price          float64     `json:"price" db:"price"`
	Status         OrderStatus `json:"status" db:"status"`
	PlatformOrder  string      `json:"platform_order_id,omitempty" db:"platform_order_id"`
	DecisionType   string      `json:"decision_type" db:"decision_type"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// AuditEntry is one line of the purchase audit log
type AuditEntry struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   string    `json:"order_id" db:"order_id"`
	Event     string    `json:"event" db:"event"`
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PurchaseResult is the outcome of executing a decision
type PurchaseResult struct {
	Status   OrderStatus  `json:"status"`
	Order    *OrderRecord `json:"order,omitempty"`
	Attempts []string     `json:"attempts,omitempty"`
	Message  string       `json:"message"`
}

// ShoppingRequest drives the full order flow: search, compare, decide and,
// when the decision allows it, buy. A nil ElderlyProtection uses the configured default.
type ShoppingRequest struct {
	Item              string   `json:"item" binding:"required"`
	Quantity          string   `json:"quantity,omitempty"`
	Urgency           Urgency  `json:"urgency,omitempty"`
	Category          string   `json:"category,omitempty"`
	ElderlyProtection *bool    `json:"elderly_protection,omitempty"`
	UserID            string   `json:"user_id,omitempty"`
	Platforms         []string `json:"platforms,omitempty"`
}

// SearchResult is the merged output of a platform fan-out
type SearchResult struct {
	Query            SearchQuery     `json:"query"`
	PlatformsQueried []string        `json:"platforms_queried"`
	PlatformErrors   []PlatformError `json:"platform_errors"`
	Listings         []RawListing    `json:"-"`
	ListingsFound    int             `json:"listings_found"`
}

// OrderOutcome is everything the order flow produced
type OrderOutcome struct {
	Search     *SearchResult     `json:"search"`
	Comparison *ComparisonResult `json:"comparison"`
	Decision   *Decision         `json:"decision"`
	Purchase   *PurchaseResult   `json:"purchase,omitempty"`
}

// ConfirmationRequest buys a listing the user approved after a
// confirm_with_user or clarify_needed decision.
type ConfirmationRequest struct {
	UserID       string       `json:"user_id,omitempty"`
	Platform     string       `json:"platform" binding:"required"`
	ProductID    string       `json:"product_id,omitempty"`
	ItemName     string       `json:"item_name" binding:"required"`
	Price        float64      `json:"price" binding:"required,gt=0"`
	DecisionType DecisionType `json:"decision_type,omitempty"`
}
