// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/internal/storage/memory"
	"github.com/iwvelando/revenue-forecast/internal/storage/postgres"
	"github.com/iwvelando/revenue-forecast/internal/storage/sqlite"
	"go.uber.org/zap"
)

// Open returns the configured store. Driver "none" yields a nil store and
// no error; callers treat that as persistence being disabled.
func Open(ctx context.Context, logger *zap.Logger, cfg config.StorageConfig) (storage.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		store = memory.New()
	case config.DriverSQLite:
		store, err = sqlite.New(cfg.Path)
	case config.DriverPostgres:
		store, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("storage driver %q is not supported", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}

	logger.Info("storage opened",
		zap.String("op", "backend.Open"),
		zap.String("driver", cfg.Driver),
	)
	return store, nil
}
