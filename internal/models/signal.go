package models

import "time"

type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// PrimarySignal — сырой сигнал от генератора (EMA-тренд или внешний источник).
// Confidence сюда НЕ входит: её выдаёт оракул на этапе гейтинга.
type PrimarySignal struct {
	Symbol    string
	Timeframe string
	Direction Direction
	Price     float64
	Strength  float64 // [0,1], нормированная сила сигнала
	Reason    string
	At        time.Time
}

// Signal — кандидат в очереди: прошёл guard, режим, оракула и сайзер.
// Неизменяемый. Исполняется ровно один раз либо отбрасывается.
type Signal struct {
	Symbol            string    `json:"symbol"`
	Direction         Direction `json:"direction"`
	Confidence        float64   `json:"confidence"`
	Strength          float64   `json:"strength"`
	Price             float64   `json:"price"`
	CurrentVolatility float64   `json:"current_volatility"`
	RegimeMultiplier  float64   `json:"regime_multiplier"`
	Quantity          float64   `json:"quantity"` // уже рассчитан сайзером
	EnqueuedAt        time.Time `json:"enqueued_at"`
}
