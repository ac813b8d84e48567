package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gangu/backend/internal/domain"
)

const defaultHistoryLimit = 20

// Audit events
const (
	auditAttempt   = "attempt"
	auditPlaced    = "placed"
	auditFailed    = "failed"
	auditDuplicate = "duplicate"
)

// PurchaseConfig holds configuration for the purchase service.
// Now stamps idempotency keys and records; nil means time.Now.
type PurchaseConfig struct {
	DefaultUserID string
	Now           func() time.Time
}

// PurchaseService turns decisions into orders. Every attempt is recorded in
// the order store before the executor is called.
type PurchaseService struct {
	executor      domain.PurchaseExecutor
	store         domain.OrderStore
	defaultUserID string
	now           func() time.Time
}

// NewPurchaseService creates a new purchase service with dependencies
func NewPurchaseService(
	executor domain.PurchaseExecutor,
	store domain.OrderStore,
	config PurchaseConfig,
) *PurchaseService {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	userID := config.DefaultUserID
	if userID == "" {
		userID = "default_user"
	}

	return &PurchaseService{
		executor:      executor,
		store:         store,
		defaultUserID: userID,
		now:           now,
	}
}

// purchaseCandidate is one listing the service may try to buy
type purchaseCandidate struct {
	platform  string
	productID string
	itemName  string
	price     float64
}

// IdempotencyKey identifies an order of one product, on one platform, by one
// user, on one calendar day.
func IdempotencyKey(platform, productID, userID string, day time.Time) string {
	raw := strings.Join([]string{
		strings.ToLower(platform),
		productID,
		userID,
		day.Format("2006-01-02"),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Execute buys the selected listing of an auto_buy decision, falling back to
// the decision's fallbacks in order when an attempt fails.
func (s *PurchaseService) Execute(ctx context.Context, userID string, d *domain.Decision) (*domain.PurchaseResult, error) {
	if d == nil || d.Type != domain.DecisionAutoBuy || d.Selected == nil {
		return nil, domain.ErrNotPurchasable
	}

	candidates := []purchaseCandidate{candidateFrom(d.Selected)}
	for i := range d.Fallbacks {
		candidates = append(candidates, candidateFrom(&d.Fallbacks[i]))
	}

	return s.purchase(ctx, s.user(userID), string(d.Type), candidates)
}

// Confirm buys a listing the user explicitly approved. There are no fallbacks:
// the user agreed to this listing only.
func (s *PurchaseService) Confirm(ctx context.Context, req domain.ConfirmationRequest) (*domain.PurchaseResult, error) {
	if strings.TrimSpace(req.Platform) == "" || strings.TrimSpace(req.ItemName) == "" || req.Price <= 0 {
		return nil, fmt.Errorf("%w: platform, item_name and a positive price are required", domain.ErrInvalidRequest)
	}
	if req.DecisionType == domain.DecisionNoGoodOption {
		return nil, domain.ErrNotPurchasable
	}

	decision := "user_confirmed"
	if req.DecisionType != "" {
		decision = string(req.DecisionType) + "+user_confirmed"
	}

	return s.purchase(ctx, s.user(req.UserID), decision, []purchaseCandidate{{
		platform:  req.Platform,
		productID: productKey(req.ProductID, req.ItemName),
		itemName:  req.ItemName,
		price:     req.Price,
	}})
}

// History returns a user's most recent orders, newest first
func (s *PurchaseService) History(ctx context.Context, userID string, limit int) ([]domain.OrderRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.ListOrders(ctx, s.user(userID), limit)
}

// Audit returns the audit trail of an order
func (s *PurchaseService) Audit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	return s.store.ListAudit(ctx, orderID)
}

func (s *PurchaseService) purchase(
	ctx context.Context,
	userID string,
	decisionType string,
	candidates []purchaseCandidate,
) (*domain.PurchaseResult, error) {
	result := &domain.PurchaseResult{Attempts: []string{}}
	now := s.now()

	for _, c := range candidates {
		key := IdempotencyKey(c.platform, c.productID, userID, now)

		existing, err := s.store.FindByIdempotencyKey(ctx, key)
		if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		if existing != nil && existing.Status != domain.OrderFailed {
			log.Printf("[PURCHASE] Duplicate order %s for %s/%q", existing.ID, c.platform, c.itemName)
			if err := s.audit(ctx, existing.ID, auditDuplicate, "same product already ordered today"); err != nil {
				return nil, err
			}
			result.Status = domain.OrderDuplicate
			result.Order = existing
			result.Message = fmt.Sprintf("%s was already ordered from %s today", c.itemName, c.platform)
			return result, nil
		}

		record := existing
		if record == nil {
			record = &domain.OrderRecord{
				ID:             uuid.NewString(),
				IdempotencyKey: key,
				UserID:         userID,
				Platform:       c.platform,
				ProductID:      c.productID,
				ItemName:       c.itemName,
				Price:          c.price,
				Status:         domain.OrderPending,
				DecisionType:   decisionType,
				CreatedAt:      now.UTC(),
			}
			if err := s.store.SaveOrder(ctx, record); err != nil {
				return nil, err
			}
		} else if err := s.store.UpdateOrderStatus(ctx, record.ID, domain.OrderPending, ""); err != nil {
			return nil, err
		}

		if err := s.audit(ctx, record.ID, auditAttempt, fmt.Sprintf("%s on %s at ₹%.2f", c.itemName, c.platform, c.price)); err != nil {
			return nil, err
		}

		confirmation, err := s.executor.PlaceOrder(ctx, domain.OrderRequest{
			IdempotencyKey: key,
			UserID:         userID,
			Platform:       c.platform,
			ProductID:      c.productID,
			ItemName:       c.itemName,
			Quantity:       1,
			ExpectedPrice:  c.price,
		})
		if errors.Is(err, domain.ErrDuplicateOrder) {
			log.Printf("[PURCHASE] %s already holds order %s for %q", c.platform, record.ID, c.itemName)
			if err := s.store.UpdateOrderStatus(ctx, record.ID, domain.OrderDuplicate, ""); err != nil {
				return nil, err
			}
			if err := s.audit(ctx, record.ID, auditDuplicate, "platform already holds this order"); err != nil {
				return nil, err
			}
			record.Status = domain.OrderDuplicate
			result.Attempts = append(result.Attempts, c.platform+": duplicate")
			result.Status = domain.OrderDuplicate
			result.Order = record
			result.Message = fmt.Sprintf("%s reports %s was already ordered", c.platform, c.itemName)
			return result, nil
		}
		if err != nil {
			log.Printf("[PURCHASE] Order on %s failed: %v", c.platform, err)
			result.Attempts = append(result.Attempts, fmt.Sprintf("%s: %v", c.platform, err))
			if err := s.store.UpdateOrderStatus(ctx, record.ID, domain.OrderFailed, ""); err != nil {
				return nil, err
			}
			if err := s.audit(ctx, record.ID, auditFailed, err.Error()); err != nil {
				return nil, err
			}
			record.Status = domain.OrderFailed
			result.Order = record
			continue
		}

		if err := s.store.UpdateOrderStatus(ctx, record.ID, domain.OrderPlaced, confirmation.OrderID); err != nil {
			return nil, err
		}
		if err := s.audit(ctx, record.ID, auditPlaced, "platform order "+confirmation.OrderID); err != nil {
			return nil, err
		}

		record.Status = domain.OrderPlaced
		record.PlatformOrder = confirmation.OrderID
		result.Attempts = append(result.Attempts, c.platform+": placed")
		result.Status = domain.OrderPlaced
		result.Order = record
		result.Message = fmt.Sprintf("Ordered %s from %s for ₹%.2f", c.itemName, c.platform, confirmation.FinalPrice)

		log.Printf("[PURCHASE] Placed order %s (%s) for user %s", record.ID, confirmation.OrderID, userID)
		return result, nil
	}

	result.Status = domain.OrderFailed
	result.Message = "Every purchase attempt failed"
	return result, fmt.Errorf("%w: %s", domain.ErrPurchaseFailed, strings.Join(result.Attempts, "; "))
}

func (s *PurchaseService) audit(ctx context.Context, orderID, event, detail string) error {
	return s.store.AppendAudit(ctx, domain.AuditEntry{
		OrderID:   orderID,
		Event:     event,
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	})
}

func (s *PurchaseService) user(userID string) string {
	if strings.TrimSpace(userID) == "" {
		return s.defaultUserID
	}
	return userID
}

func candidateFrom(l *domain.RankedListing) purchaseCandidate {
	return purchaseCandidate{
		platform:  l.Platform,
		productID: productKey(l.ProductID, l.OriginalName),
		itemName:  l.OriginalName,
		price:     l.Price,
	}
}

// productKey falls back to the listing name when a platform has no product id
func productKey(productID, itemName string) string {
	if productID != "" {
		return productID
	}
	return strings.ToLower(strings.TrimSpace(itemName))
}
