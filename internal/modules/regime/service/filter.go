package service

import (
	"math"
	"sync"

	"derivbot/internal/indicators"
	"derivbot/internal/models"
	"derivbot/internal/modules/config"
)

// Причины блокировки гейта. Блокировка — не ошибка, сигнал просто
// не идёт дальше по конвейеру.
const (
	BlockInsufficientHistory = "regime_insufficient_history"
	BlockRanging             = "regime_ranging_blocked"
	BlockLongInDowntrend     = "long_against_downtrend"
	BlockShortInUptrend      = "short_against_uptrend"
	BlockNoDirection         = "no_signal_direction"
)

// при делении на 50 ADX нормируется в уверенность [0,1]
const adxConfidenceScale = 50.0

type symbolState struct {
	adx     *indicators.ADX
	atr     *indicators.ATR
	atrMean *indicators.RollingMean
	ema     *indicators.EMA

	closes []float64 // последние MomentumWindow+1 закрытий
}

// Filter классифицирует режим рынка по символу и гейтит входы.
// Состояние транзиентное: всё пересчитывается из потока свечей,
// недогретые индикаторы означают UNKNOWN, а UNKNOWN всегда блокирует.
type Filter struct {
	mu sync.Mutex

	adxPeriod      int
	adxThreshold   float64
	atrPeriod      int
	atrMeanWindow  int
	volThreshold   float64
	highVolMult    float64
	allowRanging   bool
	emaPeriod      int
	momentumWindow int
	momentumThresh float64

	states map[string]*symbolState
}

func NewFilter(cfg *config.Config) *Filter {
	return &Filter{
		adxPeriod:      cfg.Regime.ADXPeriod,
		adxThreshold:   cfg.Regime.ADXThreshold,
		atrPeriod:      cfg.Regime.ATRPeriod,
		atrMeanWindow:  cfg.Regime.ATRMeanWindow,
		volThreshold:   cfg.Regime.VolatilityThreshold,
		highVolMult:    cfg.Regime.HighVolMultiplier,
		allowRanging:   cfg.Regime.AllowRanging,
		emaPeriod:      cfg.Regime.TrendEMAPeriod,
		momentumWindow: cfg.Regime.MomentumWindow,
		momentumThresh: cfg.Regime.MomentumThreshold,
		states:         make(map[string]*symbolState),
	}
}

// OnCandle скармливает закрытую свечу индикаторам символа.
func (f *Filter) OnCandle(c models.CandleTick) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.states[c.Symbol]
	if !ok {
		st = &symbolState{
			adx:     indicators.NewADX(f.adxPeriod),
			atr:     indicators.NewATR(f.atrPeriod),
			atrMean: indicators.NewRollingMean(f.atrMeanWindow),
			ema:     indicators.NewEMA(f.emaPeriod),
		}
		f.states[c.Symbol] = st
	}

	st.adx.Update(c)
	st.atr.Update(c)
	if st.atr.Ready() {
		st.atrMean.Update(st.atr.Value())
	}
	st.ema.Update(c.Close)

	st.closes = append(st.closes, c.Close)
	if len(st.closes) > f.momentumWindow+1 {
		st.closes = st.closes[len(st.closes)-f.momentumWindow-1:]
	}
}

// State — классификация без гейта, для статуса и журнала.
func (f *Filter) State(symbol string) models.RegimeState {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, _, _ := f.classify(symbol)
	return state
}

// Volatility — текущая ATR/close по символу; 0, пока индикатор не прогрет.
// Именно это значение сайзер подставляет в vol targeting.
func (f *Filter) Volatility(symbol string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.states[symbol]
	if !ok || !st.atr.Ready() || len(st.closes) == 0 {
		return 0
	}
	last := st.closes[len(st.closes)-1]
	if last <= 0 {
		return 0
	}
	return st.atr.Value() / last
}

// Gate решает, пускать ли сигнал данного направления. Неоднозначность
// трактуется в сторону блокировки: пропущенная сделка дешевле сделки
// в чужом режиме.
func (f *Filter) Gate(symbol string, dir models.Direction) models.GateDecision {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, allowed, mult := f.classify(symbol)
	dec := models.GateDecision{State: state}

	switch {
	case dir != models.DirectionLong && dir != models.DirectionShort:
		dec.Reason = BlockNoDirection

	case state.Regime == models.RegimeUnknown:
		dec.Reason = BlockInsufficientHistory

	case !allowed:
		dec.Reason = BlockRanging

	case dir == models.DirectionLong && state.Regime == models.RegimeTrendingDown:
		dec.Reason = BlockLongInDowntrend

	case dir == models.DirectionShort && state.Regime == models.RegimeTrendingUp:
		dec.Reason = BlockShortInUptrend

	default:
		dec.Allowed = true
		dec.SizeMultiplier = mult
	}
	return dec
}

func (f *Filter) classify(symbol string) (models.RegimeState, bool, float64) {
	state := models.RegimeState{Symbol: symbol, Regime: models.RegimeUnknown}

	st, ok := f.states[symbol]
	if !ok || !f.warm(st) {
		return state, false, 0
	}

	state.ADX = st.adx.Value()

	state.VolatilityRatio = 1.0
	if mean := st.atrMean.Value(); mean > 0 {
		state.VolatilityRatio = st.atr.Value() / mean
	}

	last := st.closes[len(st.closes)-1]
	oldest := st.closes[0]
	priceChange := (last - oldest) / oldest
	priceAboveEMA := last > st.ema.Value()
	positiveMomentum := priceChange > f.momentumThresh
	negativeMomentum := priceChange < -f.momentumThresh

	switch {
	case state.VolatilityRatio > f.volThreshold:
		// экстремальная волатильность: торгуем, но вполовину
		state.Regime = models.RegimeHighVolatility
		state.Confidence = math.Min(state.VolatilityRatio/f.volThreshold, 1.0)
		return state, true, f.highVolMult

	case state.ADX > f.adxThreshold:
		switch {
		case positiveMomentum && priceAboveEMA:
			state.Regime = models.RegimeTrendingUp
			state.Confidence = math.Min(state.ADX/adxConfidenceScale, 1.0)
			return state, true, 1.0
		case negativeMomentum && !priceAboveEMA:
			state.Regime = models.RegimeTrendingDown
			state.Confidence = math.Min(state.ADX/adxConfidenceScale, 1.0)
			return state, true, 1.0
		default:
			// сильный ADX, но моментум и EMA врозь
			state.Regime = models.RegimeRanging
			state.Confidence = 0.5
			return f.rangingDecision(state)
		}

	default:
		state.Regime = models.RegimeRanging
		state.Confidence = 1.0 - state.ADX/f.adxThreshold
		return f.rangingDecision(state)
	}
}

func (f *Filter) rangingDecision(state models.RegimeState) (models.RegimeState, bool, float64) {
	if f.allowRanging {
		return state, true, 0.5
	}
	return state, false, 0
}

func (f *Filter) warm(st *symbolState) bool {
	return st.adx.Ready() &&
		st.atr.Ready() &&
		st.atrMean.Ready() &&
		st.ema.Ready() &&
		len(st.closes) == f.momentumWindow+1
}
