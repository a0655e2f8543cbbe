package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/config"
	"github.com/parisxmas/OxiDB/OxiSign/internal/db"
	"github.com/parisxmas/OxiDB/OxiSign/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store/postgres"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store/sqlite"
)

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("Using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	case "sqlite":
		st, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		log.Info("Opened SQLite store", zap.String("path", cfg.DBPath))
		return st, nil
	case "postgres":
		st, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to PostgreSQL")
		return st, nil
	case "oxidb":
		pool, err := db.NewPool(ctx, cfg.OxiDBAddr(), cfg.PoolSize, log)
		if err != nil {
			return nil, fmt.Errorf("connect to OxiDB: %w", err)
		}
		st := repository.NewStore(pool)
		if err := st.EnsureIndexes(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("Connected to OxiDB", zap.String("addr", cfg.OxiDBAddr()), zap.Int("pool_size", cfg.PoolSize))
		return st, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
