package risk

import (
	"math"

	"derivbot/internal/models"
)

// Причины отказа сайзера. Отказ — не ошибка: сигнал просто
// не превращается в ордер, причина уходит в журнал.
const (
	RejectGuardPaused    = "performance_guard_paused"
	RejectBelowThreshold = "confidence_below_threshold"
	RejectBadInput       = "invalid_sizing_input"
	RejectZeroQuantity   = "sized_to_zero"
)

// SizeInput — всё, что меняется от сигнала к сигналу.
// Статика (лимиты, пороги, vol-targeting) живёт в самом Sizer.
type SizeInput struct {
	Equity     float64
	Confidence float64
	Price      float64

	// Volatility — текущая ATR/price по символу; 0, если детектор ещё не прогрет.
	Volatility float64

	GuardMult float64
	// GuardThresholdAdj — прибавка к порогу уверенности от guard (REDUCED → +0.10).
	GuardThresholdAdj float64
	RegimeMult        float64
}

// Decision — либо размер ордера, либо отказ с причиной.
type Decision struct {
	Quantity      float64
	PositionValue float64
	RiskAmount    float64
	TargetRiskPct float64
	VolMult       float64

	Rejected bool
	Reason   string
}

// Sizer — чистый расчёт размера позиции. Никакого I/O и скрытого
// состояния: одинаковый вход всегда даёт одинаковый выход.
type Sizer struct {
	limits    models.RiskLimits
	threshold float64

	volTargeting bool
	targetVol    float64
	maxVolMult   float64
}

func NewSizer(limits models.RiskLimits, confidenceThreshold float64, volTargeting bool, targetVol, maxVolMult float64) *Sizer {
	return &Sizer{
		limits:       limits,
		threshold:    confidenceThreshold,
		volTargeting: volTargeting,
		targetVol:    targetVol,
		maxVolMult:   maxVolMult,
	}
}

func reject(reason string) Decision {
	return Decision{Rejected: true, Reason: reason}
}

// Size считает количество в базовой валюте (qty) из целевого риска:
//
//	target_risk_pct = min + (max - min) * confidence
//	risk_amount     = equity * target_risk_pct
//	position_value  = risk_amount / stop_loss_pct
//	qty             = position_value / price
//
// затем по порядку: множитель волатильности, множитель guard, множитель
// режима, и в конце кламп номинала к max_position_size_pct * equity.
// Нулевой ордер не выдаётся никогда — вместо него отказ.
func (s *Sizer) Size(in SizeInput) Decision {
	// PAUSED режет всё безусловно
	if in.GuardMult <= 0 {
		return reject(RejectGuardPaused)
	}

	if in.Confidence < s.threshold+in.GuardThresholdAdj {
		return reject(RejectBelowThreshold)
	}

	if in.Equity <= 0 || in.Price <= 0 || s.limits.StopLossPct <= 0 {
		return reject(RejectBadInput)
	}

	// --- 1. Базовый размер по риску ---
	band := s.limits.MaxRiskPerTradePct - s.limits.MinRiskPerTradePct
	targetRiskPct := s.limits.MinRiskPerTradePct + band*in.Confidence
	riskAmount := in.Equity * targetRiskPct

	// стоп на stop_loss_pct от входа => номинал = риск / stop_loss_pct
	positionValue := riskAmount / s.limits.StopLossPct
	qty := positionValue / in.Price

	// --- 2. Множители, строго в этом порядке ---
	volMult := 1.0
	if s.volTargeting && in.Volatility > 0 {
		volMult = s.targetVol / in.Volatility
		if volMult > s.maxVolMult {
			volMult = s.maxVolMult
		}
	}
	qty *= volMult
	qty *= in.GuardMult
	qty *= in.RegimeMult

	// --- 3. Кламп итогового номинала ---
	maxValue := s.limits.MaxPositionSizePct * in.Equity
	if qty*in.Price > maxValue {
		qty = maxValue / in.Price
	}

	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return reject(RejectZeroQuantity)
	}

	return Decision{
		Quantity:      qty,
		PositionValue: qty * in.Price,
		RiskAmount:    riskAmount,
		TargetRiskPct: targetRiskPct,
		VolMult:       volMult,
	}
}
