package guard

import (
	"go.uber.org/fx"

	"derivbot/internal/modules/guard/service"
)

// Module отдаёт guard как разделяемое состояние: мутирует его только
// engine на закрытии сделок, остальные читают снимки.
func Module() fx.Option {
	return fx.Module("guard",
		fx.Provide(service.NewGuard),
	)
}
