package models

import "time"

type PositionSource string

const (
	SourceBot        PositionSource = "opened_by_bot"
	SourceReattached PositionSource = "reattached_from_exchange"
)

// Position — запись леджера. Ключ — символ: не больше одной открытой позиции на символ.
type Position struct {
	Symbol     string         `json:"symbol"`
	Direction  Direction      `json:"direction"`
	Quantity   float64        `json:"quantity"`
	EntryPrice float64        `json:"entry_price"`
	StopLoss   float64        `json:"stop_loss"`
	TakeProfit float64        `json:"take_profit"`
	EntryTime  *time.Time     `json:"entry_time,omitempty"` // nil для переподхваченных позиций
	Source     PositionSource `json:"source"`
}

func (p Position) LoadedFromExchange() bool {
	return p.Source == SourceReattached
}

// ExchangePosition — позиция, как её отдаёт биржа при опросе.
type ExchangePosition struct {
	Symbol     string
	Direction  Direction
	Quantity   float64
	EntryPrice float64
	MarkPrice  float64
	StopLoss   float64 // 0 если на бирже не выставлен
	TakeProfit float64
	UnrealPnL  float64
}
