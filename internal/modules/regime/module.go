package regime

import (
	"go.uber.org/fx"

	"derivbot/internal/modules/regime/service"
)

// Module отдаёт фильтр режима. Свечи в него заливает хаб сигналов,
// гейт дёргает engine перед постановкой сигнала в очередь.
func Module() fx.Option {
	return fx.Module("regime",
		fx.Provide(service.NewFilter),
	)
}
