package service

import (
	"fmt"
	"math"
	"sync"
	"time"

	"derivbot/internal/indicators"
	"derivbot/internal/models"
	"derivbot/internal/modules/config"
)

type Engine interface {
	// ok==true когда есть сигнал
	// becameReady==true когда символ впервые прогрелся
	OnCandle(c models.CandleTick) (sig models.PrimarySignal, ok bool, becameReady bool)

	IsReady(symbol string) bool
	Name() string
}

func NewEngine(cfg *config.Config) Engine {
	return NewEMATrend(cfg)
}

// EMATrend — трендовый генератор: пересечение EMA fast/slow плюс экстремумы RSI.
// Компоненты голосуют направлением с силой [0,1], победитель берётся взвешенно.
// Свежее пересечение весит полную силу, продолжение тренда — 0.7 от неё.
type EMATrend struct {
	fastN      int
	slowN      int
	rsiN       int
	oversold   float64
	overbought float64

	mu sync.Mutex
	st map[string]*trendState
}

type trendState struct {
	emaFast *indicators.EMA
	emaSlow *indicators.EMA
	rsi     *indicators.RSI

	fastAbove bool
	seeded    bool // есть предыдущее соотношение EMA, можно ловить пересечение

	ready bool

	// антиспам: одна свеча — максимум один сигнал
	lastSignalEnd time.Time
}

func NewEMATrend(cfg *config.Config) *EMATrend {
	return &EMATrend{
		fastN:      cfg.Signals.EMAFast,
		slowN:      cfg.Signals.EMASlow,
		rsiN:       cfg.Signals.RSIPeriod,
		oversold:   cfg.Signals.RSIOversold,
		overbought: cfg.Signals.RSIOverbought,
		st:         make(map[string]*trendState),
	}
}

func (e *EMATrend) get(sym string) *trendState {
	if s, ok := e.st[sym]; ok {
		return s
	}
	s := &trendState{
		emaFast: indicators.NewEMA(e.fastN),
		emaSlow: indicators.NewEMA(e.slowN),
		rsi:     indicators.NewRSI(e.rsiN),
	}
	e.st[sym] = s
	return s
}

type component struct {
	dir      models.Direction
	strength float64
}

func (e *EMATrend) OnCandle(c models.CandleTick) (models.PrimarySignal, bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// защита от мусора
	if c.Close <= 0 {
		return models.PrimarySignal{}, false, false
	}

	st := e.get(c.Symbol)

	st.emaFast.Update(c.Close)
	st.emaSlow.Update(c.Close)
	st.rsi.Update(c.Close)

	if !st.emaFast.Ready() || !st.emaSlow.Ready() || !st.rsi.Ready() {
		return models.PrimarySignal{}, false, false
	}

	fast := st.emaFast.Value()
	slow := st.emaSlow.Value()
	above := fast > slow

	// первая готовая свеча только сеет соотношение EMA
	if !st.seeded {
		st.fastAbove = above
		st.seeded = true
		st.ready = true
		return models.PrimarySignal{}, false, true
	}

	crossed := above != st.fastAbove
	st.fastAbove = above

	// --- 1. Компонент EMA: пересечение либо продолжение тренда ---
	emaStrength := math.Min(math.Abs(fast-slow)/c.Close, 0.05) / 0.05
	if !crossed {
		emaStrength *= 0.7
	}
	emaDir := models.DirectionShort
	if above {
		emaDir = models.DirectionLong
	}
	parts := []component{{dir: emaDir, strength: math.Min(emaStrength, 1)}}

	// --- 2. Компонент RSI: только на экстремумах ---
	rsi := st.rsi.Value()
	switch {
	case rsi < e.oversold:
		parts = append(parts, component{
			dir:      models.DirectionLong,
			strength: math.Min((e.oversold-rsi)/e.oversold, 1),
		})
	case rsi > e.overbought:
		parts = append(parts, component{
			dir:      models.DirectionShort,
			strength: math.Min((rsi-e.overbought)/(100-e.overbought), 1),
		})
	}

	// --- 3. Взвешенная комбинация ---
	var wLong, wShort float64
	for _, p := range parts {
		if p.dir == models.DirectionLong {
			wLong += p.strength
		} else {
			wShort += p.strength
		}
	}

	var dir models.Direction
	var strength float64
	n := float64(len(parts))
	switch {
	case wLong > wShort:
		dir = models.DirectionLong
		strength = math.Min(wLong/n, 1)
	case wShort > wLong:
		dir = models.DirectionShort
		strength = math.Min(wShort/n, 1)
	default:
		return models.PrimarySignal{}, false, false
	}
	if strength <= 0 {
		return models.PrimarySignal{}, false, false
	}

	// одна свеча — один сигнал максимум
	if !c.End.IsZero() && st.lastSignalEnd.Equal(c.End) {
		return models.PrimarySignal{}, false, false
	}
	st.lastSignalEnd = c.End

	sig := models.PrimarySignal{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		Direction: dir,
		Price:     c.Close,
		Strength:  strength,
		Reason: fmt.Sprintf(
			"ema%d/%d cross=%v dist=%.5f rsi=%.1f wL=%.2f wS=%.2f",
			e.fastN, e.slowN, crossed, math.Abs(fast-slow)/c.Close, rsi, wLong, wShort,
		),
		At: c.End,
	}
	return sig, true, false
}

func (e *EMATrend) IsReady(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.st[symbol]
	if !ok {
		return false
	}
	return st.ready
}

func (e *EMATrend) Name() string { return "ema_trend_rsi" }
