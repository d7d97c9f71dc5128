package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/opentracing/opentracing-go"

	"derivbot/internal/helper"
	"derivbot/internal/models"
	bybit "derivbot/internal/modules/bybit/service"
	"derivbot/pkg/id"
)

// RejectMinNotional — поднятие количества до минимального номинала биржи
// пробило бы риск-кап. Отказ, не ошибка: сделка просто не ставится.
const RejectMinNotional = "min_notional_exceeds_risk_cap"

const (
	limitsTTL   = 5 * time.Minute
	maxAttempts = 3 // первый вызов + два ретрая
)

// консервативный фолбэк, когда ограничения инструмента недоступны
var fallbackLimits = models.InstrumentLimits{
	QtyStep:     0.001,
	MinOrderQty: 0.001,
	MinNotional: 5,
}

// ExecResult — итог попытки исполнения: позиция либо отказ с причиной.
type ExecResult struct {
	Position models.Position
	OrderID  string

	Rejected bool
	Reason   string
}

type limitsEntry struct {
	lim models.InstrumentLimits
	at  time.Time
}

// Executor нормализует количество под ограничения инструмента и ставит
// рыночный ордер с биржевыми SL/TP. Ретраи ограничены: после них сделка
// считается пропущенной, что с этим делать — решает вызывающая сторона.
type Executor struct {
	gw  Gateway
	lim models.RiskLimits

	mu    sync.Mutex
	cache map[string]limitsEntry

	retryInitial time.Duration
	now          func() time.Time
}

func NewExecutor(gw Gateway, lim models.RiskLimits) *Executor {
	return &Executor{
		gw:           gw,
		lim:          lim,
		cache:        make(map[string]limitsEntry),
		retryInitial: 500 * time.Millisecond,
		now:          time.Now,
	}
}

// Execute ставит рыночный ордер по кандидату из очереди. Ошибка означает
// "биржа не приняла после всех ретраев" и идёт в счёт частоты ошибок
// kill switch-а у вызывающей стороны.
func (e *Executor) Execute(ctx context.Context, sig models.Signal, equity float64) (ExecResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.execute")
	defer span.Finish()

	lim := e.limits(ctx, sig.Symbol)

	qty, reason := e.normalizeQty(lim, sig.Quantity, sig.Price, equity)
	if reason != "" {
		return ExecResult{Rejected: true, Reason: reason}, nil
	}

	sl, tp := e.levels(sig.Direction, sig.Price, lim.TickSize)
	req := bybit.PlaceOrderRequest{
		Symbol:      sig.Symbol,
		Direction:   sig.Direction,
		Qty:         qty,
		StopLoss:    sl,
		TakeProfit:  tp,
		OrderLinkID: id.New(),
	}

	var orderID string
	op := func() error {
		var err error
		orderID, err = e.gw.PlaceMarketOrder(ctx, req)
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInitial
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)); err != nil {
		return ExecResult{}, fmt.Errorf("place order %s: %w", sig.Symbol, err)
	}

	now := e.now().UTC()
	return ExecResult{
		Position: models.Position{
			Symbol:     sig.Symbol,
			Direction:  sig.Direction,
			Quantity:   qty,
			EntryPrice: sig.Price,
			StopLoss:   sl,
			TakeProfit: tp,
			EntryTime:  &now,
			Source:     models.SourceBot,
		},
		OrderID: orderID,
	}, nil
}

// limits отдаёт ограничения инструмента из кэша, при промахе тянет с биржи.
// Если биржа недоступна, работаем по консервативному фолбэку; фолбэк
// не кэшируется, следующий вызов снова попробует биржу.
func (e *Executor) limits(ctx context.Context, symbol string) models.InstrumentLimits {
	e.mu.Lock()
	if ent, ok := e.cache[symbol]; ok && e.now().Sub(ent.at) < limitsTTL {
		e.mu.Unlock()
		return ent.lim
	}
	e.mu.Unlock()

	lim, err := e.gw.InstrumentLimits(ctx, symbol)
	if err != nil {
		log.Printf("[EXEC] %s: ограничения инструмента недоступны (%v), фолбэк", symbol, err)
		lim = fallbackLimits
		lim.Symbol = symbol
		return lim
	}

	e.mu.Lock()
	e.cache[symbol] = limitsEntry{lim: lim, at: e.now()}
	e.mu.Unlock()
	return lim
}

// normalizeQty приводит количество к шагу и минимумам инструмента.
// Возвращает (qty, "") либо (0, причина отказа).
func (e *Executor) normalizeQty(lim models.InstrumentLimits, qty, price, equity float64) (float64, string) {
	// --- 1. Пол по шагу и минимальному количеству ---
	q := helper.RoundDownToStep(qty, lim.QtyStep)
	if q < lim.MinOrderQty {
		q = lim.MinOrderQty
	}
	if lim.MaxOrderQty > 0 && q > lim.MaxOrderQty {
		q = helper.RoundDownToStep(lim.MaxOrderQty, lim.QtyStep)
	}

	// --- 2. Минимальный номинал: поднимаем до следующего шага вверх ---
	if lim.MinNotional > 0 && q*price < lim.MinNotional {
		q = helper.RoundUpToStep(lim.MinNotional/price, lim.QtyStep)
		if q < lim.MinOrderQty {
			q = lim.MinOrderQty
		}

		// --- 3. Поднятый номинал не должен пробить риск-кап ---
		if q*price > e.lim.MaxPositionSizePct*equity {
			return 0, RejectMinNotional
		}
	}
	return q, ""
}

// levels считает биржевые SL/TP от входа. Округление в безопасную сторону:
// и стоп, и тейк уходят от входа, а не приближаются к нему.
func (e *Executor) levels(dir models.Direction, entry, tick float64) (sl, tp float64) {
	if dir == models.DirectionLong {
		sl = helper.RoundDownToTick(entry*(1-e.lim.StopLossPct), tick)
		tp = helper.RoundUpToTick(entry*(1+e.lim.TakeProfitPct), tick)
		return sl, tp
	}
	sl = helper.RoundUpToTick(entry*(1+e.lim.StopLossPct), tick)
	tp = helper.RoundDownToTick(entry*(1-e.lim.TakeProfitPct), tick)
	return sl, tp
}
