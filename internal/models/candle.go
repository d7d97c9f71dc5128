package models

import "time"

// CandleTick — закрытая свеча из стрима или REST-прогрева.
type CandleTick struct {
	Symbol    string
	Timeframe string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Start     time.Time
	End       time.Time
}
