package postgres

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/fx"

	"derivbot/internal/journal"
	"derivbot/internal/modules/config"
	"derivbot/pkg/db"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					log.Printf("[JOURNAL] db_dsn пуст, Postgres не подключаем")
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				if err := poolMaster.Ping(ctx); err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
			journal.NewStore,  // -> *journal.Store
			journal.NewWriter, // -> *journal.Writer
		),

		fx.Invoke(func(lc fx.Lifecycle, w *journal.Writer) {
			var cancel context.CancelFunc

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					runCtx, c := context.WithCancel(context.Background())
					cancel = c
					go w.Start(runCtx)
					return nil
				},
				OnStop: func(context.Context) error {
					if cancel != nil {
						cancel()
					}
					return nil
				},
			})
		}),
	)
}
