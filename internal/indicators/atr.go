package indicators

import (
	"math"

	"derivbot/internal/models"
)

// ATR — средний истинный диапазон, сглаживание Уайлдера.
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prevCandle  models.CandleTick
	hasPrevious bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Warmup — сколько свечей нужно до готовности (TR требует предыдущую свечу).
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Update(c models.CandleTick) {
	if !a.hasPrevious {
		a.prevCandle = c
		a.hasPrevious = true
		return
	}

	tr := trueRange(c, a.prevCandle)

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
	} else {
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}

	a.prevCandle = c
}

func (a *ATR) Ready() bool { return a.count >= a.period }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

func trueRange(current, previous models.CandleTick) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
