package postgres

import (
	"context"
	"fmt"
	"time"

	"tinkoff_bot/internal/modules/config"
	"tinkoff_bot/pkg/db"
	"tinkoff_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewTxManager: пул к Postgres. Пустой DSN: журнал в БД выключен, менеджер nil.
func NewTxManager(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
	if cfg.DB == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	tx := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			tx.Close()
			return nil
		},
	})
	logger.Info("[POSTGRES] connected")
	return tx, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(NewTxManager),
	)
}
