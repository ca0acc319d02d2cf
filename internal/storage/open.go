package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "freegait/pkg/logx"
)

// Store is the step history API.
type Store interface {
	AppendStep(ctx context.Context, r StepRecord) error
	// RecentSteps returns up to limit records, newest first.
	RecentSteps(ctx context.Context, limit int) ([]StepRecord, error)
	// PruneBefore deletes records finished before t and reports how many.
	PruneBefore(ctx context.Context, t time.Time) (int, error)
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
	log = log.With(logx.String("comp", "storage"), logx.String("driver", driver))

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
