package notify

import (
	"context"
	"fmt"

	"derivbot/internal/events"
)

type sender interface {
	Send(msg string)
}

// Relay слушает шину событий и пересылает заметные в Telegram.
// Отклонённые сигналы не шлёт: их много и они остаются в журнале.
type Relay struct {
	bus *events.Bus
	tg  sender
}

func NewRelay(bus *events.Bus, tg *Telegram) *Relay {
	return &Relay{bus: bus, tg: tg}
}

func (r *Relay) Start(ctx context.Context) {
	ch, cancel := r.bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Type == events.TypeSignalRejected {
				continue
			}
			r.tg.Send(Format(e))
		}
	}
}

// Format — человекочитаемый текст события.
func Format(e events.Event) string {
	switch e.Type {
	case events.TypeGuardTransition:
		return fmt.Sprintf("🛡 Guard: %s → %s (%s)", e.From, e.To, e.Reason)
	case events.TypeKillSwitch:
		return fmt.Sprintf("🚨 KILL SWITCH: %s. Торговля остановлена, нужен ручной рестарт.", e.Reason)
	case events.TypeTradeExecuted:
		return fmt.Sprintf("📈 Вход %s %s qty=%.6f @ %.4f", e.Symbol, e.Side, e.Qty, e.Price)
	case events.TypeTradeClosed:
		emoji := "✅"
		if e.PnL < 0 {
			emoji = "❌"
		}
		return fmt.Sprintf("%s Выход %s %s qty=%.6f @ %.4f pnl=%.2f (%s)",
			emoji, e.Symbol, e.Side, e.Qty, e.Price, e.PnL, e.Reason)
	case events.TypeSignalRejected:
		return fmt.Sprintf("🚫 Сигнал отклонён %s: %s", e.Symbol, e.Reason)
	case events.TypeReattachedPosition:
		return fmt.Sprintf("🔗 Подхвачена позиция %s: %s", e.Symbol, e.Warning)
	default:
		return fmt.Sprintf("ℹ️ %s %s %s", e.Type, e.Symbol, e.Reason)
	}
}
