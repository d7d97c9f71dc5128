package main

import (
	"context"
	"log"

	"derivbot/internal/engine"
	"derivbot/internal/modules/bootstrap"
	"derivbot/internal/modules/bybit"
	"derivbot/internal/modules/config"
	"derivbot/internal/modules/guard"
	"derivbot/internal/modules/health"
	marketws "derivbot/internal/modules/market_ws"
	"derivbot/internal/modules/postgres"
	"derivbot/internal/modules/regime"
	"derivbot/internal/modules/signals"
	"derivbot/internal/notify"
	"derivbot/pkg/logger"
	"derivbot/pkg/tracing"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

const serviceName = "derivbot"

func main() {
	// .env опционален: в проде переменные приходят из окружения
	_ = godotenv.Load()

	logger.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		bybit.Module(),
		marketws.Module(),
		regime.Module(),
		guard.Module(),
		signals.Module(),
		bootstrap.Module(),
		notify.Module(),
		engine.Module(),
		health.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Jaeger.Host == "" {
		return nil
	}

	tracing.SetServiceName(serviceName)
	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}
