package indicators

// RSI — индекс относительной силы Уайлдера по ценам закрытия.
// Средние gain/loss сеются простым средним первых Period изменений,
// дальше экспоненциальное сглаживание.
type RSI struct {
	period int

	prev     float64
	havePrev bool

	avgGain float64
	avgLoss float64

	count int
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Warmup — сколько цен нужно до готовности (первое изменение требует предыдущую).
func (r *RSI) Warmup() int { return r.period + 1 }

func (r *RSI) Update(close float64) {
	if !r.havePrev {
		r.prev = close
		r.havePrev = true
		return
	}

	change := close - r.prev
	r.prev = close

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	p := float64(r.period)
	if r.count < r.period {
		r.avgGain += gain
		r.avgLoss += loss
		r.count++
		if r.count == r.period {
			r.avgGain /= p
			r.avgLoss /= p
		}
		return
	}

	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

func (r *RSI) Ready() bool { return r.count >= r.period }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
