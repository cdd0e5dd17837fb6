// Package persistence opens the StateStore adapter selected by configuration.
package persistence

import (
	"context"
	"fmt"

	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/persistence/memory"
	"github.com/rankboard/portalgate/infrastructure/persistence/redisstate"
	"github.com/rankboard/portalgate/infrastructure/persistence/sqlstate"
)

// Open returns the persistence space named by cfg.PersistenceDriver. The
// caller owns the store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (outbound.StateStore, error) {
	switch cfg.PersistenceDriver {
	case "", config.DriverMemory:
		return memory.NewStateStore(), nil
	case config.DriverRedis:
		store, err := redisstate.Connect(ctx, cfg.RedisURL, cfg.PersistenceNamespace)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres, config.DriverSQLite:
		dialect := sqlstate.DialectPostgres
		if cfg.PersistenceDriver == config.DriverSQLite {
			dialect = sqlstate.DialectSQLite
		}
		store, err := sqlstate.Open(ctx, dialect, cfg.DatabaseURL, cfg.PersistenceNamespace)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidDriver, cfg.PersistenceDriver)
	}
}
