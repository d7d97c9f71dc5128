package engine

import (
	"context"
	"log"
	"time"

	"derivbot/internal/events"
	"derivbot/internal/models"
	"derivbot/pkg/id"
)

// MonitorTick — периодическая сверка с биржей: свежий снимок equity,
// пробой SL/TP по марке, внешние закрытия, неизвестные позиции, затем
// повторный дренаж очереди и запись статус-файла.
func (e *Engine) MonitorTick(ctx context.Context) {
	if e.stopped {
		return
	}

	// --- 1. Свежий снимок equity ---
	e.refreshEquity(ctx)
	if e.stopped {
		return
	}

	// --- 2. Сверка позиций ---
	exch, err := e.gw.Positions(ctx)
	if err != nil {
		log.Printf("[ENGINE] монитор: позиции недоступны: %v", err)
		e.apiError(ctx)
		return
	}
	e.reconcile(ctx, exch)
	if e.stopped {
		return
	}

	// --- 3. Дренаж очереди под освободившиеся слоты ---
	e.AdmissionPass(ctx)

	// --- 4. Статус-файл для внешних чекеров ---
	e.writeStatus()
}

// reconcile сводит леджер с позициями на бирже.
func (e *Engine) reconcile(ctx context.Context, exch []models.ExchangePosition) {
	onExchange := make(map[string]models.ExchangePosition, len(exch))
	for _, p := range exch {
		if p.Quantity > 0 {
			onExchange[p.Symbol] = p
		}
	}

	// отслеживаемые: пробой уровней по марке либо закрытие вне бота
	closedNow := make(map[string]bool)
	for _, tracked := range e.ledger.Snapshot() {
		live, ok := onExchange[tracked.Symbol]
		if !ok {
			// позицию закрыли снаружи, PnL неизвестен — guard не трогаем
			log.Printf("[ENGINE] ⚠️ %s закрыта вне бота, убираем из леджера", tracked.Symbol)
			e.ledger.Drop(tracked.Symbol)
			e.bus.Publish(events.TradeClosed(tracked.Symbol, string(tracked.Direction), tracked.Quantity, 0, 0, "closed_externally"))
			continue
		}
		if reason := breached(tracked, live.MarkPrice); reason != "" {
			e.closePosition(ctx, tracked, live.MarkPrice, reason)
			closedNow[tracked.Symbol] = true
			if e.stopped {
				return
			}
		}
	}

	// неизвестные на бирже — переподхват; снимок биржи взят до закрытий,
	// и только что закрытые позиции в нём ещё висят
	for sym, p := range onExchange {
		if closedNow[sym] || e.ledger.Has(sym) {
			continue
		}
		log.Printf("[ENGINE] ⚠️ неизвестная позиция %s на бирже, подхватываем", sym)
		e.reatt.ReattachOne(ctx, p)
	}
}

// breached проверяет пробой SL/TP по mark price; нулевой уровень не проверяется.
func breached(p models.Position, mark float64) string {
	if mark <= 0 {
		return ""
	}
	if p.Direction == models.DirectionLong {
		switch {
		case p.StopLoss > 0 && mark <= p.StopLoss:
			return "stop_loss"
		case p.TakeProfit > 0 && mark >= p.TakeProfit:
			return "take_profit"
		}
		return ""
	}
	switch {
	case p.StopLoss > 0 && mark >= p.StopLoss:
		return "stop_loss"
	case p.TakeProfit > 0 && mark <= p.TakeProfit:
		return "take_profit"
	}
	return ""
}

// closePosition закрывает позицию рыночным reduce-only и фиксирует исход.
// PnL считается по марке: фактический филл может отличаться, guard-у
// такой точности хватает.
func (e *Engine) closePosition(ctx context.Context, p models.Position, mark float64, reason string) {
	if _, err := e.gw.ClosePositionMarket(ctx, p.Symbol, p.Direction, p.Quantity, id.New()); err != nil {
		log.Printf("[ENGINE] закрытие %s: %v", p.Symbol, err)
		e.apiError(ctx)
		return
	}

	pnl := (mark - p.EntryPrice) * p.Quantity
	if p.Direction == models.DirectionShort {
		pnl = (p.EntryPrice - mark) * p.Quantity
	}

	e.ledger.Drop(p.Symbol)
	e.ks.RecordPnL(pnl)
	tradesClosed.WithLabelValues(reason).Inc()
	e.bus.Publish(events.TradeClosed(p.Symbol, string(p.Direction), p.Quantity, mark, pnl, reason))
	log.Printf("[ENGINE] закрыта %s %s qty=%.6f @ %.4f pnl=%.2f (%s)",
		p.Symbol, p.Direction, p.Quantity, mark, pnl, reason)

	st, tr := e.guard.RecordTrade(models.TradeOutcome{PnL: pnl, IsWin: pnl > 0, At: time.Now().UTC()})
	e.guardTransition(tr, st)
}
