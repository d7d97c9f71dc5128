package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeGuardTransition    Type = "guard_transition"
	TypeKillSwitch         Type = "kill_switch_triggered"
	TypeTradeExecuted      Type = "trade_executed"
	TypeTradeClosed        Type = "trade_closed"
	TypeSignalRejected     Type = "signal_rejected"
	TypeReattachedPosition Type = "reattached_position"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Event — структурированное событие для внешнего потребителя (лог, журнал, алерты).
// Поля заполняются по типу события, остальные нулевые.
type Event struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`

	Symbol string `json:"symbol,omitempty"`
	Reason string `json:"reason,omitempty"`

	// guard_transition
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// trade_executed / trade_closed
	Side  string  `json:"side,omitempty"`
	Qty   float64 `json:"qty,omitempty"`
	Price float64 `json:"price,omitempty"`
	PnL   float64 `json:"pnl,omitempty"`

	// reattached_position
	Warning string `json:"warning,omitempty"`
}

func newEvent(t Type, sev Severity) Event {
	return Event{
		ID:       uuid.New().String(),
		Type:     t,
		Severity: sev,
		At:       time.Now().UTC(),
	}
}

func GuardTransition(from, to, reason string) Event {
	e := newEvent(TypeGuardTransition, SeverityWarning)
	e.From = from
	e.To = to
	e.Reason = reason
	return e
}

func KillSwitchTriggered(reason string) Event {
	e := newEvent(TypeKillSwitch, SeverityCritical)
	e.Reason = reason
	return e
}

func TradeExecuted(symbol, side string, qty, price float64) Event {
	e := newEvent(TypeTradeExecuted, SeverityInfo)
	e.Symbol = symbol
	e.Side = side
	e.Qty = qty
	e.Price = price
	return e
}

func TradeClosed(symbol, side string, qty, price, pnl float64, reason string) Event {
	e := newEvent(TypeTradeClosed, SeverityInfo)
	e.Symbol = symbol
	e.Side = side
	e.Qty = qty
	e.Price = price
	e.PnL = pnl
	e.Reason = reason
	return e
}

func SignalRejected(symbol, reason string) Event {
	e := newEvent(TypeSignalRejected, SeverityInfo)
	e.Symbol = symbol
	e.Reason = reason
	return e
}

func ReattachedPosition(symbol, warning string) Event {
	e := newEvent(TypeReattachedPosition, SeverityWarning)
	e.Symbol = symbol
	e.Warning = warning
	return e
}
