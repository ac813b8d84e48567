package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/gangu/backend/internal/domain"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const orderColumns = `id, idempotency_key, user_id, platform, product_id, item_name,
	price, status, platform_order_id, decision_type, created_at`

// SQLStore is an OrderStore over sqlite3 or postgres
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLStore connects to the database and creates the schema if it does not exist
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_journal_mode=WAL"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Printf("[STORE] Connected to %s store", driver)
	return s, nil
}

func (s *SQLStore) createSchema() error {
	auditID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		auditID = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			idempotency_key TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			product_id TEXT NOT NULL DEFAULT '',
			item_name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			platform_order_id TEXT NOT NULL DEFAULT '',
			decision_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS order_audit (
			id ` + auditID + `,
			order_id TEXT NOT NULL,
			event TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_audit_order ON order_audit(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveOrder inserts an order. A reused idempotency key is ErrDuplicateOrder.
func (s *SQLStore) SaveOrder(ctx context.Context, order *domain.OrderRecord) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (
		:id, :idempotency_key, :user_id, :platform, :product_id, :item_name,
		:price, :status, :platform_order_id, :decision_type, :created_at)`, order)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, order.IdempotencyKey)
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// UpdateOrderStatus sets the status and platform order id of an order
func (s *SQLStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, platformOrderID string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE orders SET status = ?, platform_order_id = ? WHERE id = ?`),
		status, platformOrderID, id)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// GetOrder returns an order by id
func (s *SQLStore) GetOrder(ctx context.Context, id string) (*domain.OrderRecord, error) {
	return s.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// FindByIdempotencyKey returns the order recorded under key
func (s *SQLStore) FindByIdempotencyKey(ctx context.Context, key string) (*domain.OrderRecord, error) {
	return s.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = ?`, key)
}

func (s *SQLStore) getOne(ctx context.Context, query string, arg interface{}) (*domain.OrderRecord, error) {
	var order domain.OrderRecord
	if err := s.db.GetContext(ctx, &order, s.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	return &order, nil
}

// ListOrders returns a user's orders, newest first
func (s *SQLStore) ListOrders(ctx context.Context, userID string, limit int) ([]domain.OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	orders := []domain.OrderRecord{}
	err := s.db.SelectContext(ctx, &orders, s.db.Rebind(`SELECT `+orderColumns+`
		FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	for i := range orders {
		orders[i].CreatedAt = orders[i].CreatedAt.UTC()
	}
	return orders, nil
}

// AppendAudit adds an audit line
func (s *SQLStore) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO order_audit (order_id, event, detail, created_at)
		VALUES (:order_id, :event, :detail, :created_at)`, entry)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns an order's audit lines in insertion order
func (s *SQLStore) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	entries := []domain.AuditEntry{}
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`SELECT id, order_id, event, detail, created_at
		FROM order_audit WHERE order_id = ? ORDER BY id`), orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
