package notify

import (
	"context"

	"go.uber.org/fx"

	bootstrapsvc "derivbot/internal/modules/bootstrap/service"
	marketwssvc "derivbot/internal/modules/market_ws/service"
	signalssvc "derivbot/internal/modules/signals/service"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			NewTelegram, // -> *Telegram
			NewRelay,    // -> *Relay

			// адаптеры под нотифайер-интерфейсы потребителей
			func(t *Telegram) marketwssvc.ServiceNotifier { return t },
			func(t *Telegram) signalssvc.ServiceNotifier { return t },
			func(t *Telegram) bootstrapsvc.ServiceNotifier { return t },
		),

		fx.Invoke(func(lc fx.Lifecycle, r *Relay) {
			var cancel context.CancelFunc

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					runCtx, c := context.WithCancel(context.Background())
					cancel = c
					go r.Start(runCtx)
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
