package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gangu/backend/internal/domain"
)

// MemoryStore is an OrderStore held in process memory
type MemoryStore struct {
	mutex  sync.RWMutex
	orders map[string]domain.OrderRecord
	byKey  map[string]string
	audit  []domain.AuditEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]domain.OrderRecord),
		byKey:  make(map[string]string),
	}
}

// SaveOrder inserts an order. The idempotency key must be unused.
func (s *MemoryStore) SaveOrder(ctx context.Context, order *domain.OrderRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.byKey[order.IdempotencyKey]; exists {
		return domain.ErrDuplicateOrder
	}
	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrDuplicateOrder
	}

	s.orders[order.ID] = *order
	s.byKey[order.IdempotencyKey] = order.ID
	return nil
}

// UpdateOrderStatus sets the status and platform order id of an order
func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, platformOrderID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.PlatformOrder = platformOrderID
	s.orders[id] = order
	return nil
}

// GetOrder returns an order by id
func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.OrderRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

// FindByIdempotencyKey returns the order recorded under key
func (s *MemoryStore) FindByIdempotencyKey(ctx context.Context, key string) (*domain.OrderRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order := s.orders[id]
	return &order, nil
}

// ListOrders returns a user's orders, newest first
func (s *MemoryStore) ListOrders(ctx context.Context, userID string, limit int) ([]domain.OrderRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	orders := []domain.OrderRecord{}
	for _, order := range s.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// AppendAudit adds an audit line, assigning the next id
func (s *MemoryStore) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry.ID = int64(len(s.audit) + 1)
	s.audit = append(s.audit, entry)
	return nil
}

// ListAudit returns an order's audit lines in insertion order
func (s *MemoryStore) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entries := []domain.AuditEntry{}
	for _, e := range s.audit {
		if e.OrderID == orderID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
