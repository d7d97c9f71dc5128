package models

import "time"

type GuardTier string

const (
	GuardNormal  GuardTier = "NORMAL"
	GuardReduced GuardTier = "REDUCED"
	GuardPaused  GuardTier = "PAUSED"
)

// TradeOutcome — исход закрытой сделки, единственный вход мутации guard-а.
type TradeOutcome struct {
	PnL   float64
	IsWin bool
	At    time.Time
}

// GuardState — снимок состояния guard-а. Отдаётся читателям по значению.
type GuardState struct {
	Tier             GuardTier `json:"tier"`
	WinRate          float64   `json:"win_rate"`
	DrawdownFromPeak float64   `json:"drawdown_from_peak"`
	LosingStreak     int       `json:"losing_streak"`
	TradesInWindow   int       `json:"trades_in_window"`
	Since            time.Time `json:"since"`
}

func (t GuardTier) SizeMultiplier() float64 {
	switch t {
	case GuardPaused:
		return 0
	case GuardReduced:
		return 0.5
	default:
		return 1.0
	}
}

func (t GuardTier) ConfidenceAdjustment() float64 {
	if t == GuardReduced {
		return 0.1
	}
	return 0
}
