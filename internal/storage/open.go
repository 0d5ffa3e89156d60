package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"netmond/internal/netperf"
	"netmond/pkg/logx"
)

// Store is the persistence API used by the collector and diagnostics.
type Store interface {
	// InsertRecord appends one collection result (append-only series).
	InsertRecord(ctx context.Context, rec netperf.Record) error
	// LatestRecord returns the newest row for a path, or (nil, nil) when
	// no data exists. Empty source/dest match any path.
	LatestRecord(ctx context.Context, source, dest string) (*PerfRow, error)
	// RecordsSince returns rows newer than since, newest first.
	RecordsSince(ctx context.Context, source, dest string, since time.Time) ([]PerfRow, error)
	// PruneBefore deletes rows older than cutoff and reports the count.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	InsertEgress(ctx context.Context, r EgressRow) error
	RecentEgress(ctx context.Context, limit int) ([]EgressRow, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	if driver == "none" {
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
