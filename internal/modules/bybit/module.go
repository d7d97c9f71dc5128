package bybit

import (
	"go.uber.org/fx"

	"derivbot/internal/modules/bybit/service"
)

// Module отдаёт REST-клиент биржи. Стримом свечей занимается market_ws.
func Module() fx.Option {
	return fx.Module("bybit",
		fx.Provide(service.NewClient),
	)
}
