package market_ws

import (
	"context"

	"go.uber.org/fx"

	"derivbot/internal/modules/market_ws/service"
)

// Module поднимает стример свечей Bybit.
func Module() fx.Option {
	return fx.Module("market_ws",
		fx.Provide(
			service.NewClient,
			func() chan service.OutTick {
				// общий буфер для свечей
				return make(chan service.OutTick, 1024)
			},
			func(ch chan service.OutTick) <-chan service.OutTick { return ch },
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Client, out chan service.OutTick) {
			var cancel context.CancelFunc
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					runCtx, c := context.WithCancel(context.Background())
					cancel = c
					go s.Start(runCtx, out)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
