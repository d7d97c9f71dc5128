package bootstrap

import (
	"context"
	"log"

	"go.uber.org/fx"

	bootstrap "derivbot/internal/modules/bootstrap/service"
	"derivbot/internal/modules/config"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			bootstrap.NewWarmuper, // -> bootstrap.Warmuper
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *bootstrap.Warmuper) {
			var cancel context.CancelFunc

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					runCtx, c := context.WithCancel(context.Background())
					cancel = c

					go func() {
						syms := cfg.Engine.Symbols
						wu.ApplyLeverage(runCtx, syms)
						if err := wu.Warmup(runCtx, syms); err != nil {
							log.Printf("[BOOT] warmup error: %v", err)
							return
						}
						log.Printf("[BOOT] warmup done: %d symbols", len(syms))
					}()
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
