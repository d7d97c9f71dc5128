package models

// InstrumentLimits — торговые ограничения инструмента с биржи.
// Используется нормализатором количества перед выставлением ордера.
type InstrumentLimits struct {
	Symbol      string
	QtyStep     float64
	MinOrderQty float64
	MinNotional float64
	TickSize    float64
	MaxOrderQty float64
}

// OpenOrder — открытый (в т.ч. условный) ордер с биржи; источник восстановления SL/TP.
type OpenOrder struct {
	OrderID    string
	Symbol     string
	Side       string // Buy/Sell
	Qty        float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	ReduceOnly bool
}
