package journal

import (
	"context"
	"log"

	"derivbot/internal/events"
)

// Writer — потребитель шины для БД: пишет каждое событие в events,
// а trade_executed / trade_closed дополнительно раскладывает в trades.
type Writer struct {
	bus   *events.Bus
	store *Store
}

func NewWriter(bus *events.Bus, store *Store) *Writer {
	return &Writer{bus: bus, store: store}
}

func (w *Writer) Start(ctx context.Context) {
	if !w.store.Enabled() {
		log.Printf("[JOURNAL] БД не настроена, журнал выключен")
		return
	}

	ch, cancel := w.bus.Subscribe(512)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			w.record(ctx, e)
		}
	}
}

func (w *Writer) record(ctx context.Context, e events.Event) {
	if err := w.store.InsertEvent(ctx, e); err != nil {
		log.Printf("[JOURNAL] insert event: %v", err)
	}

	row, ok := tradeRowFromEvent(e)
	if !ok {
		return
	}
	if err := w.store.InsertTrade(ctx, row); err != nil {
		log.Printf("[JOURNAL] insert trade: %v", err)
	}
}

func tradeRowFromEvent(e events.Event) (TradeRow, bool) {
	var action string
	switch e.Type {
	case events.TypeTradeExecuted:
		action = "open"
	case events.TypeTradeClosed:
		action = "close"
	default:
		return TradeRow{}, false
	}

	return TradeRow{
		Symbol: e.Symbol,
		Side:   e.Side,
		Action: action,
		Qty:    e.Qty,
		Price:  e.Price,
		PnL:    e.PnL,
		Reason: e.Reason,
		At:     e.At,
	}, true
}
