package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/opentracing/opentracing-go"

	"derivbot/internal/events"
	"derivbot/internal/models"
)

// Reattacher восстанавливает леджер по открытым позициям биржи после
// рестарта. Уровни SL/TP берутся с самой позиции или из условных ордеров;
// если их нет, синтезируются от конфиговых процентов с предупреждением.
type Reattacher struct {
	gw     Gateway
	ledger *Ledger
	bus    *events.Bus
	lim    models.RiskLimits
}

func NewReattacher(gw Gateway, ledger *Ledger, bus *events.Bus, lim models.RiskLimits) *Reattacher {
	return &Reattacher{gw: gw, ledger: ledger, bus: bus, lim: lim}
}

// Reattach опрашивает биржу и подхватывает все неизвестные позиции.
// Повторный вызов без сделок между ними леджер не меняет.
func (r *Reattacher) Reattach(ctx context.Context) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.reattach")
	defer span.Finish()

	positions, err := r.gw.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("reattach: %w", err)
	}

	n := 0
	for _, p := range positions {
		if p.Quantity <= 0 || r.ledger.Has(p.Symbol) {
			continue
		}
		r.ReattachOne(ctx, p)
		n++
	}
	return n, nil
}

// ReattachOne подхватывает одну биржевую позицию в леджер и шлёт событие.
func (r *Reattacher) ReattachOne(ctx context.Context, p models.ExchangePosition) {
	sl, tp, synthesized := r.levels(ctx, p)

	r.ledger.Track(models.Position{
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		StopLoss:   sl,
		TakeProfit: tp,
		EntryTime:  nil, // время входа потеряно при рестарте
		Source:     models.SourceReattached,
	})

	warning := fmt.Sprintf("уровни с биржи: SL=%.4f TP=%.4f", sl, tp)
	if synthesized {
		warning = fmt.Sprintf("SL/TP не найдены на бирже, синтезированы из конфига: SL=%.4f TP=%.4f", sl, tp)
	}
	r.bus.Publish(events.ReattachedPosition(p.Symbol, warning))
	log.Printf("[ENGINE] 🔗 подхвачена позиция %s %s %.6f @ %.4f — %s",
		p.Symbol, p.Direction, p.Quantity, p.EntryPrice, warning)
}

// levels восстанавливает SL/TP: сперва сама позиция, затем условные ордера,
// в остатке синтез от конфиговых процентов в сторону позиции.
func (r *Reattacher) levels(ctx context.Context, p models.ExchangePosition) (sl, tp float64, synthesized bool) {
	sl, tp = p.StopLoss, p.TakeProfit

	if sl == 0 || tp == 0 {
		orders, err := r.gw.OpenOrders(ctx, p.Symbol)
		if err != nil {
			log.Printf("[ENGINE] %s: открытые ордера недоступны: %v", p.Symbol, err)
		}
		for _, o := range orders {
			if sl == 0 && o.StopLoss > 0 {
				sl = o.StopLoss
			}
			if tp == 0 && o.TakeProfit > 0 {
				tp = o.TakeProfit
			}
		}
	}

	if sl == 0 {
		synthesized = true
		if p.Direction == models.DirectionLong {
			sl = p.EntryPrice * (1 - r.lim.StopLossPct)
		} else {
			sl = p.EntryPrice * (1 + r.lim.StopLossPct)
		}
	}
	if tp == 0 {
		synthesized = true
		if p.Direction == models.DirectionLong {
			tp = p.EntryPrice * (1 + r.lim.TakeProfitPct)
		} else {
			tp = p.EntryPrice * (1 - r.lim.TakeProfitPct)
		}
	}
	return sl, tp, synthesized
}
