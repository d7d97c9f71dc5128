package service

import (
	"sync"
	"time"

	"derivbot/internal/models"
	"derivbot/internal/modules/config"
)

// Transition — смена яруса guard-а. Сам guard никуда её не шлёт:
// I/O (журнал, алерты) делает вызывающая сторона.
type Transition struct {
	From models.GuardTier
	To   models.GuardTier
	At   time.Time
}

// Guard — автомат NORMAL → REDUCED → PAUSED поверх скользящего окна
// исходов сделок. Переходы пересчитываются только на закрытии сделки;
// UpdateEquity лишь двигает пик для просадки. Восстановление в NORMAL
// возможно из обоих нижних ярусов, PAUSED в REDUCED не спускается.
type Guard struct {
	mu sync.Mutex

	window    int
	minTrades int

	winRateReduced float64
	ddReduced      float64
	streakReduced  int
	winRatePaused  float64
	ddPaused       float64
	streakPaused   int
	recoveryWR     float64
	recoveryDD     float64

	// держим window*2 исходов, метрики считаем по последним window
	outcomes []models.TradeOutcome

	tier       models.GuardTier
	since      time.Time
	peakEquity float64
	lastEquity float64
}

func NewGuard(cfg *config.Config) *Guard {
	return &Guard{
		window:         cfg.Guard.RollingWindowTrades,
		minTrades:      cfg.Guard.MinTrades,
		winRateReduced: cfg.Guard.WinRateReduced,
		ddReduced:      cfg.Guard.DrawdownReduced,
		streakReduced:  cfg.Guard.LosingStreakReduced,
		winRatePaused:  cfg.Guard.WinRatePaused,
		ddPaused:       cfg.Guard.DrawdownPaused,
		streakPaused:   cfg.Guard.LosingStreakPaused,
		recoveryWR:     cfg.Guard.RecoveryWinRate,
		recoveryDD:     cfg.Guard.RecoveryDrawdown,
		tier:           models.GuardNormal,
		since:          time.Now().UTC(),
	}
}

// UpdateEquity двигает пик для расчёта просадки. Переходов не делает.
func (g *Guard) UpdateEquity(equity float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if equity > g.peakEquity {
		g.peakEquity = equity
	}
	g.lastEquity = equity
}

// RecordTrade фиксирует исход закрытой сделки и пересчитывает ярус.
// Возвращает свежий снимок и переход, если он случился.
func (g *Guard) RecordTrade(out models.TradeOutcome) (models.GuardState, *Transition) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.outcomes = append(g.outcomes, out)
	if len(g.outcomes) > g.window*2 {
		g.outcomes = g.outcomes[len(g.outcomes)-g.window*2:]
	}

	tr := g.evaluate(out.At)
	return g.snapshot(), tr
}

// Snapshot — текущее состояние по значению, без мутаций.
func (g *Guard) Snapshot() models.GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Guard) snapshot() models.GuardState {
	winRate, streak, trades := g.windowMetrics()
	return models.GuardState{
		Tier:             g.tier,
		WinRate:          winRate,
		DrawdownFromPeak: g.drawdown(),
		LosingStreak:     streak,
		TradesInWindow:   trades,
		Since:            g.since,
	}
}

func (g *Guard) windowMetrics() (winRate float64, losingStreak, trades int) {
	recent := g.outcomes
	if len(recent) > g.window {
		recent = recent[len(recent)-g.window:]
	}
	trades = len(recent)
	if trades == 0 {
		return 0, 0, 0
	}

	wins := 0
	for _, t := range recent {
		if t.IsWin {
			wins++
		}
	}
	winRate = float64(wins) / float64(trades)

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].IsWin {
			break
		}
		losingStreak++
	}
	return winRate, losingStreak, trades
}

func (g *Guard) drawdown() float64 {
	if g.peakEquity <= 0 {
		return 0
	}
	return (g.peakEquity - g.lastEquity) / g.peakEquity
}

// evaluate — порядок проверок важен: сперва PAUSED (туда можно упасть
// и из NORMAL напрямую), потом REDUCED, и только когда ни одно из
// условий деградации не держит — восстановление.
func (g *Guard) evaluate(at time.Time) *Transition {
	winRate, streak, trades := g.windowMetrics()
	dd := g.drawdown()
	hasPeak := g.peakEquity > 0

	switch {
	case (winRate < g.winRatePaused && trades >= g.minTrades) ||
		streak >= g.streakPaused ||
		(dd > g.ddPaused && hasPeak):
		if g.tier != models.GuardPaused {
			return g.move(models.GuardPaused, at)
		}

	case (winRate < g.winRateReduced && trades >= g.minTrades) ||
		streak >= g.streakReduced ||
		(dd > g.ddReduced && hasPeak):
		if g.tier == models.GuardNormal {
			return g.move(models.GuardReduced, at)
		}

	case g.tier != models.GuardNormal:
		if winRate >= g.recoveryWR && trades >= g.minTrades && dd < g.recoveryDD {
			return g.move(models.GuardNormal, at)
		}
	}
	return nil
}

func (g *Guard) move(to models.GuardTier, at time.Time) *Transition {
	tr := &Transition{From: g.tier, To: to, At: at}
	g.tier = to
	g.since = at
	return tr
}
