package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"derivbot/internal/events"
	"derivbot/internal/models"
	"derivbot/internal/modules/config"
	guardsvc "derivbot/internal/modules/guard/service"
	healthsvc "derivbot/internal/modules/health/service"
	regimesvc "derivbot/internal/modules/regime/service"
	"derivbot/internal/oracle"
	"derivbot/internal/risk"
)

// RejectOracleUnavailable — оракул не дал скор. Без скора не торгуем.
const RejectOracleUnavailable = "oracle_unavailable"

// Engine — торговый цикл: гейтинг первичных сигналов, очередь кандидатов,
// исполнение, монитор позиций. Сигналы и тики монитора обрабатывает одна
// горутина, поэтому admission pass-ы сериализованы по построению.
type Engine struct {
	cfg *config.Config

	gw     Gateway
	bus    *events.Bus
	guard  *guardsvc.Guard
	regime *regimesvc.Filter
	sizer  *risk.Sizer
	ks     *risk.KillSwitch
	oracle *oracle.Registry
	queue  *Queue
	ledger *Ledger
	exec   *Executor
	reatt  *Reattacher
	health *healthsvc.State

	// кэш последнего equity для сайзера; обновляется раз в тик
	equity  float64
	stopped bool
}

func New(
	cfg *config.Config,
	gw Gateway,
	bus *events.Bus,
	guard *guardsvc.Guard,
	regime *regimesvc.Filter,
	sizer *risk.Sizer,
	ks *risk.KillSwitch,
	reg *oracle.Registry,
	queue *Queue,
	ledger *Ledger,
	exec *Executor,
	reatt *Reattacher,
	health *healthsvc.State,
) *Engine {
	return &Engine{
		cfg:    cfg,
		gw:     gw,
		bus:    bus,
		guard:  guard,
		regime: regime,
		sizer:  sizer,
		ks:     ks,
		oracle: reg,
		queue:  queue,
		ledger: ledger,
		exec:   exec,
		reatt:  reatt,
		health: health,
	}
}

// Run — главный цикл. Сначала подхват позиций, до приёма сигналов,
// затем селект: сигналы из хаба и тик монитора.
func (e *Engine) Run(ctx context.Context, signals <-chan models.PrimarySignal) {
	// --- 1. Подхват позиций до старта цикла ---
	if n, err := e.reatt.Reattach(ctx); err != nil {
		log.Printf("[ENGINE] переподхват позиций: %v", err)
		e.apiError(ctx)
	} else if n > 0 {
		log.Printf("[ENGINE] подхвачено позиций с биржи: %d", n)
	}

	// --- 2. Стартовый снимок equity ---
	e.refreshEquity(ctx)
	if e.stopped {
		return
	}
	e.health.SetReady(true)
	e.pushHealth()

	ticker := time.NewTicker(e.cfg.Engine.MonitorInterval)
	defer ticker.Stop()

	log.Printf("[ENGINE] цикл запущен: monitor=%s слоты=%d порог=%.2f",
		e.cfg.Engine.MonitorInterval, e.cfg.Risk.MaxOpenPositions, e.cfg.Engine.ConfidenceThreshold)

	for {
		select {
		case <-ctx.Done():
			return
		case ps, ok := <-signals:
			if !ok {
				log.Printf("[ENGINE] канал сигналов закрыт")
				return
			}
			e.OnPrimary(ctx, ps)
		case <-ticker.C:
			e.MonitorTick(ctx)
		}
		if e.stopped {
			log.Printf("[ENGINE] торговля остановлена, нужен ручной рестарт")
			return
		}
	}
}

// OnPrimary прогоняет первичный сигнал через ворота по порядку: kill switch,
// guard, режим, оракул, сайзер. Любой отказ уходит в журнал с причиной.
func (e *Engine) OnPrimary(ctx context.Context, ps models.PrimarySignal) {
	if e.stopped {
		return
	}
	if tripped, _ := e.ks.Tripped(); tripped {
		return
	}

	// --- 1. Guard: PAUSED режет всё до остальных ворот ---
	gs := e.guard.Snapshot()
	if gs.Tier == models.GuardPaused {
		e.reject(ps.Symbol, risk.RejectGuardPaused)
		return
	}

	// --- 2. Гейт режима ---
	gate := e.regime.Gate(ps.Symbol, ps.Direction)
	if !gate.Allowed {
		e.reject(ps.Symbol, gate.Reason)
		return
	}

	// --- 3. Оракул: нет скора — нет сделки ---
	conf, err := e.oracle.Score(ctx, oracle.Features{
		Symbol:           ps.Symbol,
		Direction:        ps.Direction,
		Strength:         ps.Strength,
		ADX:              gate.State.ADX,
		VolatilityRatio:  gate.State.VolatilityRatio,
		RegimeConfidence: gate.State.Confidence,
	})
	if err != nil {
		log.Printf("[ENGINE] оракул не дал скор %s: %v", ps.Symbol, err)
		e.reject(ps.Symbol, RejectOracleUnavailable)
		return
	}

	// --- 4. Сайзер: порог с поправкой guard, риск-лимиты, множители ---
	vol := e.regime.Volatility(ps.Symbol)
	dec := e.sizer.Size(risk.SizeInput{
		Equity:            e.equity,
		Confidence:        conf,
		Price:             ps.Price,
		Volatility:        vol,
		GuardMult:         gs.Tier.SizeMultiplier(),
		GuardThresholdAdj: gs.Tier.ConfidenceAdjustment(),
		RegimeMult:        gate.SizeMultiplier,
	})
	if dec.Rejected {
		e.reject(ps.Symbol, dec.Reason)
		return
	}

	// --- 5. В очередь и сразу же admission pass ---
	sig := models.Signal{
		Symbol:            ps.Symbol,
		Direction:         ps.Direction,
		Confidence:        conf,
		Strength:          ps.Strength,
		Price:             ps.Price,
		CurrentVolatility: vol,
		RegimeMultiplier:  gate.SizeMultiplier,
		Quantity:          dec.Quantity,
		EnqueuedAt:        time.Now().UTC(),
	}
	if dropped := e.queue.Push(sig); dropped != nil {
		e.reject(dropped.Symbol, DropQueueFull)
	}
	log.Printf("[ENGINE] кандидат %s %s conf=%.2f qty=%.6f (очередь=%d)",
		sig.Symbol, sig.Direction, conf, dec.Quantity, e.queue.Len())

	e.AdmissionPass(ctx)
}

// AdmissionPass — один проход допуска: сперва протухшие, затем снятие
// кандидатов под свободные слоты строго в порядке ранга.
func (e *Engine) AdmissionPass(ctx context.Context) {
	for _, s := range e.queue.Expire() {
		e.reject(s.Symbol, DropExpired)
	}

	slots := e.cfg.Risk.MaxOpenPositions - e.ledger.Open()
	if slots > 0 {
		for _, sig := range e.queue.PopEligible(slots, e.ledger.Has) {
			e.place(ctx, sig)
			if e.stopped {
				break
			}
		}
	}
	e.pushHealth()
}

func (e *Engine) place(ctx context.Context, sig models.Signal) {
	res, err := e.exec.Execute(ctx, sig, e.equity)
	if err != nil {
		// ретраи исчерпаны: сделка пропущена, ошибка в счёт kill switch
		log.Printf("[ENGINE] исполнение %s: %v", sig.Symbol, err)
		e.apiError(ctx)
		return
	}
	if res.Rejected {
		e.reject(sig.Symbol, res.Reason)
		return
	}

	e.ledger.Track(res.Position)
	ordersPlaced.Inc()
	e.bus.Publish(events.TradeExecuted(sig.Symbol, string(sig.Direction), res.Position.Quantity, res.Position.EntryPrice))
	log.Printf("[ENGINE] ✅ вход %s %s qty=%.6f @ %.4f SL=%.4f TP=%.4f order=%s",
		sig.Symbol, sig.Direction, res.Position.Quantity, res.Position.EntryPrice,
		res.Position.StopLoss, res.Position.TakeProfit, res.OrderID)
}

func (e *Engine) reject(symbol, reason string) {
	log.Printf("[ENGINE] отказ %s: %s", symbol, reason)
	signalsRejected.WithLabelValues(reason).Inc()
	e.bus.Publish(events.SignalRejected(symbol, reason))
}

// refreshEquity обновляет кэш equity для сайзера и скармливает снимок
// guard-у (пик просадки) и kill switch-у (дневной убыток, просадка).
func (e *Engine) refreshEquity(ctx context.Context) {
	equity, err := e.gw.Equity(ctx)
	if err != nil {
		log.Printf("[ENGINE] equity недоступно: %v", err)
		e.apiError(ctx)
		return
	}

	e.equity = equity
	e.guard.UpdateEquity(equity)
	equityGauge.Set(equity)

	if tripped, reason := e.ks.UpdateEquity(equity); tripped {
		e.trip(ctx, reason)
	}
}

// apiError учитывает ошибку биржи; при превышении частоты срабатывает
// kill switch.
func (e *Engine) apiError(ctx context.Context) {
	if tripped, reason := e.ks.RecordAPIError(); tripped {
		e.trip(ctx, reason)
	}
}

// trip — одностороннее срабатывание: снять все ордера, событие, стоп цикла.
// Обратной дороги нет, сброс только рестартом процесса.
func (e *Engine) trip(ctx context.Context, reason string) {
	if e.stopped {
		return
	}
	e.stopped = true

	log.Printf("[ENGINE] 🚨 KILL SWITCH: %s", reason)
	if n, err := e.gw.CancelAllOrders(ctx); err != nil {
		log.Printf("[ENGINE] снятие ордеров при останове: %v", err)
	} else {
		log.Printf("[ENGINE] снято ордеров: %d", n)
	}

	e.bus.Publish(events.KillSwitchTriggered(reason))
	e.health.SetReady(false)
	e.health.SetKillSwitch(true)
	e.writeStatus()
}

func (e *Engine) guardTransition(tr *guardsvc.Transition, st models.GuardState) {
	if tr == nil {
		return
	}
	reason := fmt.Sprintf("win_rate=%.2f dd=%.3f streak=%d", st.WinRate, st.DrawdownFromPeak, st.LosingStreak)
	e.bus.Publish(events.GuardTransition(string(tr.From), string(tr.To), reason))
	log.Printf("[ENGINE] 🛡 guard %s -> %s (%s)", tr.From, tr.To, reason)
}

func (e *Engine) pushHealth() {
	open := e.ledger.Open()
	depth := e.queue.Len()

	e.health.SetOpenPositions(open)
	e.health.SetQueueDepth(depth)
	e.health.SetGuardTier(string(e.guard.Snapshot().Tier))
	openPositions.Set(float64(open))
	queueDepth.Set(float64(depth))
}
