package signals

import (
	"context"
	"log"

	"go.uber.org/fx"

	"derivbot/internal/models"
	marketws "derivbot/internal/modules/market_ws/service"
	"derivbot/internal/modules/signals/service"
)

func newPrimaryChan() chan models.PrimarySignal {
	return make(chan models.PrimarySignal, 4096)
}
func asSendOnlyPrimary(ch chan models.PrimarySignal) chan<- models.PrimarySignal { return ch }
func asRecvOnlyPrimary(ch chan models.PrimarySignal) <-chan models.PrimarySignal { return ch }

func Module() fx.Option {
	return fx.Module("signals",
		fx.Provide(
			newPrimaryChan,    // chan models.PrimarySignal
			asSendOnlyPrimary, // chan<- models.PrimarySignal (хаб)
			asRecvOnlyPrimary, // <-chan models.PrimarySignal (движок)
			service.NewEngine, // service.Engine
			service.NewHub,    // *service.Hub
		),

		fx.Invoke(func(lc fx.Lifecycle, hub *service.Hub, ticks <-chan marketws.OutTick) {
			var cancel context.CancelFunc

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					runCtx, c := context.WithCancel(context.Background())
					cancel = c

					go func() {
						log.Printf("[SIGNALS] hub loop started")
						for {
							select {
							case <-runCtx.Done():
								log.Printf("[SIGNALS] hub loop stopped")
								return
							case t, ok := <-ticks:
								if !ok {
									log.Printf("[SIGNALS] ticks channel closed")
									return
								}
								hub.OnTick(runCtx, t)
							}
						}
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
