package platform

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

// DryRunExecutor accepts every order without contacting a marketplace.
// Order ids are derived from the idempotency key so repeated runs agree.
type DryRunExecutor struct{}

// NewDryRunExecutor creates a dry-run executor
func NewDryRunExecutor() *DryRunExecutor {
	return &DryRunExecutor{}
}

// PlaceOrder pretends to place the order
func (e *DryRunExecutor) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if len(key) > 12 {
		key = key[:12]
	}
	if key == "" {
		return nil, fmt.Errorf("%w: missing idempotency key", domain.ErrInvalidRequest)
	}

	log.Printf("[PURCHASE] dry run: %s x%d on %s for ₹%.2f", req.ItemName, req.Quantity, req.Platform, req.ExpectedPrice)
	return &domain.OrderConfirmation{
		OrderID:    "DRY-" + strings.ToUpper(key),
		Platform:   req.Platform,
		FinalPrice: req.ExpectedPrice,
	}, nil
}

// Router sends each order to the executor registered for its platform
type Router struct {
	executors map[string]domain.PurchaseExecutor
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{executors: make(map[string]domain.PurchaseExecutor)}
}

// Register adds the executor for a platform
func (r *Router) Register(platform string, executor domain.PurchaseExecutor) {
	r.executors[strings.ToLower(strings.TrimSpace(platform))] = executor
}

// PlaceOrder routes the order by platform name
func (r *Router) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	executor, ok := r.executors[strings.ToLower(strings.TrimSpace(req.Platform))]
	if !ok {
		return nil, fmt.Errorf("%w: no executor for platform %q", domain.ErrPlatformFailure, req.Platform)
	}
	return executor.PlaceOrder(ctx, req)
}
