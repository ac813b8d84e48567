package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PlatformSearcher searches a single marketplace for listings
type PlatformSearcher interface {
	Name() string
	Search(ctx context.Context, query SearchQuery) ([]RawListing, error)
}

// PurchaseExecutor places an order on a marketplace
type PurchaseExecutor interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error)
}

// OrderStore persists orders and the purchase audit trail
type OrderStore interface {
	SaveOrder(ctx context.Context, order *OrderRecord) error
	UpdateOrderStatus(ctx context.Context, id string, status OrderStatus, platformOrderID string) error
	GetOrder(ctx context.Context, id string) (*OrderRecord, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*OrderRecord, error)
	ListOrders(ctx context.Context, userID string, limit int) ([]OrderRecord, error)
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, orderID string) ([]AuditEntry, error)
	Close() error
}

// Narrator turns a decision into a plain-language message
type Narrator interface {
	Narrate(ctx context.Context, decision *Decision, result *ComparisonResult) (*Narrative, error)
}
