package postgres

import (
	"context"
	"fmt"

	"breakout_bot/internal/modules/config"
	"breakout_bot/pkg/db"
	"breakout_bot/pkg/logger"

	"go.uber.org/fx"
)

// Module provides *db.PgTxManager. With the memory storage driver it provides nil.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.Storage.Driver != config.StoragePostgres {
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					poolMaster.Close()
					return nil, err
				}

				tm := db.NewPgTxManager(poolMaster)
				applied, err := RunMigrations(ctx, tm.Conn())
				if err != nil {
					tm.Close()
					return nil, err
				}
				logger.Info("[POSTGRES] connected, %d migrations applied", applied)

				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						tm.Close()
						return nil
					},
				})
				return tm, nil
			},
		),
	)
}
