package engine

import (
	"context"
	"log"

	"go.uber.org/fx"

	"derivbot/internal/events"
	"derivbot/internal/models"
	bybit "derivbot/internal/modules/bybit/service"
	"derivbot/internal/modules/config"
	"derivbot/internal/oracle"
	"derivbot/internal/risk"
)

func newQueue(cfg *config.Config) *Queue {
	return NewQueue(cfg.Queue.TTL, cfg.Queue.MaxPending)
}

func newSizer(cfg *config.Config) *risk.Sizer {
	return risk.NewSizer(
		cfg.RiskLimits(),
		cfg.Engine.ConfidenceThreshold,
		cfg.Risk.VolTargetingEnabled,
		cfg.Risk.TargetVolatility,
		cfg.Risk.MaxVolMultiplier,
	)
}

func newKillSwitch(cfg *config.Config) *risk.KillSwitch {
	return risk.NewKillSwitch(cfg.RiskLimits(), cfg.KillSwitch.APIErrorThreshold, cfg.KillSwitch.APIErrorWindow)
}

// пока обученной модели нет, скорит эвристический бейзлайн;
// Install на реестре горячо подменит его без остановки цикла
func newOracle() *oracle.Registry {
	r := oracle.NewRegistry()
	r.Install(oracle.NewBaseline())
	return r
}

func newExecutor(gw Gateway, cfg *config.Config) *Executor {
	return NewExecutor(gw, cfg.RiskLimits())
}

func newReattacher(gw Gateway, ledger *Ledger, bus *events.Bus, cfg *config.Config) *Reattacher {
	return NewReattacher(gw, ledger, bus, cfg.RiskLimits())
}

func asGateway(c *bybit.Client) Gateway { return c }

// Module связывает конвейер: шина событий, оракул, очередь, риск,
// леджер, исполнитель и сам цикл.
func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			events.NewBus,
			newOracle,
			newQueue,
			newSizer,
			newKillSwitch,
			NewLedger,
			newExecutor,
			newReattacher,
			asGateway,
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, e *Engine, signals <-chan models.PrimarySignal) {
			var cancel context.CancelFunc

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					runCtx, c := context.WithCancel(context.Background())
					cancel = c
					go func() {
						log.Printf("[ENGINE] started")
						e.Run(runCtx, signals)
						log.Printf("[ENGINE] stopped")
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
