// Package history keeps the append-only audit log of dispatched commands.
package history

import (
	"context"
	"fmt"

	"alfred/internal/config"
	"alfred/internal/types"

	"go.uber.org/zap"
)

// Store drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store is an append-only command history
type Store interface {
	// Append records one entry
	Append(ctx context.Context, entry types.HistoryEntry) error
	// Recent returns up to limit of the newest entries, oldest first; limit <= 0 returns all
	Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error)
	// Len returns the number of stored entries
	Len(ctx context.Context) (int, error)
	Close() error
}

// New opens the store selected by cfg.Driver
func New(cfg config.HistoryConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidHistoryType, cfg.Driver)
	}
}
