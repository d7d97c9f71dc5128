package indicators

// EMA — экспоненциальное скользящее среднее, сеется простым средним первых period значений.
type EMA struct {
	period int
	k      float64

	value     float64
	warmupSum float64
	count     int
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		k:      2.0 / (float64(period) + 1.0),
	}
}

func (e *EMA) Update(x float64) {
	e.count++
	if e.count <= e.period {
		e.warmupSum += x
		if e.count == e.period {
			e.value = e.warmupSum / float64(e.period)
		}
		return
	}
	e.value += e.k * (x - e.value)
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}

// RollingMean — среднее по окну фиксированной длины (для отношения ATR к своему среднему).
type RollingMean struct {
	window int
	buf    []float64
	sum    float64
}

func NewRollingMean(window int) *RollingMean {
	return &RollingMean{window: window}
}

func (r *RollingMean) Update(x float64) {
	r.buf = append(r.buf, x)
	r.sum += x
	if len(r.buf) > r.window {
		r.sum -= r.buf[0]
		r.buf = r.buf[1:]
	}
}

func (r *RollingMean) Ready() bool { return len(r.buf) >= r.window }

func (r *RollingMean) Value() float64 {
	if len(r.buf) == 0 {
		return 0
	}
	return r.sum / float64(len(r.buf))
}
