package risk

import (
	"sync"
	"time"

	"derivbot/internal/models"
)

// Причины срабатывания. После срабатывания переключатель залипает:
// сброс — только перезапуск процесса.
const (
	TripDailyLoss   = "daily_loss_limit_breached"
	TripMaxDrawdown = "max_drawdown_breached"
	TripAPIErrors   = "api_error_rate_exceeded"
)

// KillSwitchState — снимок для статуса и журнала.
type KillSwitchState struct {
	Tripped   bool      `json:"tripped"`
	Reason    string    `json:"reason,omitempty"`
	TrippedAt time.Time `json:"tripped_at,omitempty"`

	DailyLossPct float64 `json:"daily_loss_pct"`
	DailyPnL     float64 `json:"daily_pnl"`
	DrawdownPct  float64 `json:"drawdown_pct"`
	APIErrors    int     `json:"api_errors_in_window"`
}

// KillSwitch следит за абсолютными порогами: дневной убыток от equity
// на начало суток (UTC), просадка от пика и частота ошибок API в
// скользящем окне. В отличие от guard он не восстанавливается сам.
type KillSwitch struct {
	mu sync.Mutex

	maxDailyLossPct float64
	maxDrawdownPct  float64
	errThreshold    int
	errWindow       time.Duration

	now func() time.Time

	day            time.Time // полночь UTC текущих суток
	dayStartEquity float64
	dayPnL         float64
	peakEquity     float64
	lastEquity     float64
	errTimes       []time.Time

	tripped    bool
	tripReason string
	trippedAt  time.Time
}

func NewKillSwitch(limits models.RiskLimits, errThreshold int, errWindow time.Duration) *KillSwitch {
	return &KillSwitch{
		maxDailyLossPct: limits.MaxDailyLossPct,
		maxDrawdownPct:  limits.MaxDrawdownPct,
		errThreshold:    errThreshold,
		errWindow:       errWindow,
		now:             time.Now,
	}
}

// UpdateEquity пересчитывает дневной убыток и просадку.
// Возвращает (true, причина) при первом и всех последующих вызовах
// после срабатывания.
func (k *KillSwitch) UpdateEquity(equity float64) (bool, string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.rollDay(now, equity)

	if equity > k.peakEquity {
		k.peakEquity = equity
	}
	k.lastEquity = equity

	if k.tripped {
		return true, k.tripReason
	}

	if k.dayStartEquity > 0 {
		dailyLoss := (k.dayStartEquity - equity) / k.dayStartEquity
		if dailyLoss > k.maxDailyLossPct {
			k.trip(TripDailyLoss, now)
			return true, k.tripReason
		}
	}

	if k.peakEquity > 0 {
		drawdown := (k.peakEquity - equity) / k.peakEquity
		if drawdown > k.maxDrawdownPct {
			k.trip(TripMaxDrawdown, now)
			return true, k.tripReason
		}
	}

	return false, ""
}

// RecordPnL накапливает реализованный PnL текущих суток UTC. Сумма идёт
// в статус; порог дневного убытка считается по equity, не по ней.
func (k *KillSwitch) RecordPnL(pnl float64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.rollDay(k.now(), k.lastEquity)
	k.dayPnL += pnl
}

// RecordAPIError учитывает одну ошибку обмена и проверяет порог частоты.
func (k *KillSwitch) RecordAPIError() (bool, string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.errTimes = append(k.errTimes, now)
	k.pruneErrors(now)

	if k.tripped {
		return true, k.tripReason
	}

	if len(k.errTimes) >= k.errThreshold {
		k.trip(TripAPIErrors, now)
		return true, k.tripReason
	}
	return false, ""
}

// Tripped — текущее состояние без побочных эффектов.
func (k *KillSwitch) Tripped() (bool, string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tripped, k.tripReason
}

func (k *KillSwitch) Snapshot() KillSwitchState {
	k.mu.Lock()
	defer k.mu.Unlock()

	st := KillSwitchState{
		Tripped:   k.tripped,
		Reason:    k.tripReason,
		TrippedAt: k.trippedAt,
		DailyPnL:  k.dayPnL,
		APIErrors: len(k.errTimes),
	}
	if k.dayStartEquity > 0 {
		st.DailyLossPct = (k.dayStartEquity - k.lastEquity) / k.dayStartEquity
	}
	if k.peakEquity > 0 {
		st.DrawdownPct = (k.peakEquity - k.lastEquity) / k.peakEquity
	}
	return st
}

func (k *KillSwitch) trip(reason string, at time.Time) {
	k.tripped = true
	k.tripReason = reason
	k.trippedAt = at
}

// rollDay переводит базу дневного убытка на новые сутки UTC.
func (k *KillSwitch) rollDay(now time.Time, equity float64) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.After(k.day) {
		k.day = day
		k.dayStartEquity = equity
		k.dayPnL = 0
	}
}

func (k *KillSwitch) pruneErrors(now time.Time) {
	cutoff := now.Add(-k.errWindow)
	i := 0
	for i < len(k.errTimes) && k.errTimes[i].Before(cutoff) {
		i++
	}
	k.errTimes = k.errTimes[i:]
}
