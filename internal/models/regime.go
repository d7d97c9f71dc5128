package models

type Regime string

const (
	RegimeUnknown        Regime = "UNKNOWN"
	RegimeTrendingUp     Regime = "TRENDING_UP"
	RegimeTrendingDown   Regime = "TRENDING_DOWN"
	RegimeRanging        Regime = "RANGING"
	RegimeHighVolatility Regime = "HIGH_VOLATILITY"
)

// RegimeState — транзиентный снимок по символу, пересчитывается на каждой свече.
// Не переживает рестарт: пересчёт по той же истории детерминирован.
type RegimeState struct {
	Symbol          string
	Regime          Regime
	ADX             float64
	VolatilityRatio float64 // текущий ATR / скользящее среднее ATR
	Confidence      float64
}

// GateDecision — результат гейта режима для конкретного направления.
type GateDecision struct {
	Allowed        bool
	SizeMultiplier float64
	Reason         string
	State          RegimeState
}
