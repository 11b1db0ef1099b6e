package storage

import (
	"context"
	"errors"
	"strings"

	logx "schedsync/pkg/logx"
)

// Store is the minimal persistence API used by the reconciler and dispatcher.
type Store interface {
	AppendReconcile(ctx context.Context, e ReconcileEntry) error
	AppendFiring(ctx context.Context, e FiringEntry) error
	RecentFirings(ctx context.Context, limit int) ([]FiringEntry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
