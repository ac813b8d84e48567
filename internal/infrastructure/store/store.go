// Package store persists orders and the purchase audit trail.
package store

import (
	"fmt"

	"github.com/gangu/backend/internal/domain"
)

// DriverMemory keeps orders in process memory
const DriverMemory = "memory"

// New opens the order store for driver: memory, sqlite3 or postgres
func New(driver, dsn string) (domain.OrderStore, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("store driver %s requires a dsn", driver)
		}
		sqlStore, err := NewSQLStore(driver, dsn)
		if err != nil {
			return nil, err
		}
		return sqlStore, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}
