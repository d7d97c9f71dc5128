package engine

import "github.com/prometheus/client_golang/prometheus"

// Метрики движка. Регистрируются в дефолтном реестре, наружу их отдаёт
// health-модуль на /metrics.
var (
	signalsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "derivbot_signals_rejected_total",
		Help: "Signals rejected before execution, by reason.",
	}, []string{"reason"})

	ordersPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "derivbot_orders_placed_total",
		Help: "Market orders accepted by the exchange.",
	})

	tradesClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "derivbot_trades_closed_total",
		Help: "Positions closed by the engine, by reason.",
	}, []string{"reason"})

	openPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "derivbot_open_positions",
		Help: "Positions currently tracked by the ledger.",
	})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "derivbot_queue_depth",
		Help: "Candidates waiting in the admission queue.",
	})

	equityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "derivbot_equity_usdt",
		Help: "Last account equity snapshot.",
	})
)

func init() {
	prometheus.MustRegister(
		signalsRejected,
		ordersPlaced,
		tradesClosed,
		openPositions,
		queueDepth,
		equityGauge,
	)
}
