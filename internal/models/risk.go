package models

// RiskLimits — неизменяемый снимок лимитов на сессию. Меняется только редеплоем конфига.
type RiskLimits struct {
	MaxLeverage        float64
	MaxPositionSizePct float64 // доля equity на одну позицию
	MaxDailyLossPct    float64
	MaxDrawdownPct     float64
	MaxOpenPositions   int
	StopLossPct        float64
	TakeProfitPct      float64
	MinRiskPerTradePct float64
	MaxRiskPerTradePct float64
}
