package state

import (
	"context"
	"fmt"

	"github.com/oshokin/energy-sim/internal/config"
)

// Open builds the store selected by cfg. The caller owns the returned store and must Close it.
//
//nolint:ireturn // The driver is selected at runtime.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.StorageMemory, "":
		return NewMemoryStore(), nil
	case config.StorageFile:
		return NewFileStore(cfg.Dir), nil
	case config.StorageSQLite:
		store, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.StoragePostgres:
		store, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.StorageRedis:
		store, err := OpenRedis(ctx, cfg.DSN, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
