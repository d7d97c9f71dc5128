package indicators

import (
	"math"

	"derivbot/internal/models"
)

// ADX — индекс силы тренда Уайлдера в стриминговом виде.
// Готовность наступает после 2*Period+1 свечей: Period на сглаживание TR/DM,
// ещё Period значений DX на посев самого ADX.
type ADX struct {
	Period int

	prev     models.CandleTick
	havePrev bool

	tr  float64
	pdm float64
	mdm float64

	adx   float64
	dxSum float64

	count int
	ready bool
}

func NewADX(period int) *ADX {
	return &ADX{Period: period}
}

func (a *ADX) Value() float64 { return a.adx }

func (a *ADX) Ready() bool { return a.ready }

func (a *ADX) Update(c models.CandleTick) (float64, bool) {
	if !a.havePrev {
		a.prev = c
		a.havePrev = true
		a.count = 1
		return 0, false
	}

	upMove := c.High - a.prev.High
	downMove := a.prev.Low - c.Low

	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}

	tr := trueRange(c, a.prev)

	a.prev = c
	a.count++

	p := float64(a.Period)

	// фаза A: простые средние первых Period значений как посев сглаживания
	if a.count <= a.Period+1 {
		a.tr += tr
		a.pdm += pdm
		a.mdm += mdm

		if a.count == a.Period+1 {
			a.tr /= p
			a.pdm /= p
			a.mdm /= p
		}
		return 0, false
	}

	a.tr = (a.tr*(p-1) + tr) / p
	a.pdm = (a.pdm*(p-1) + pdm) / p
	a.mdm = (a.mdm*(p-1) + mdm) / p

	if a.tr == 0 {
		return 0, false
	}

	pdi := 100 * (a.pdm / a.tr)
	mdi := 100 * (a.mdm / a.tr)
	den := pdi + mdi
	if den == 0 {
		return 0, false
	}

	dx := 100 * math.Abs(pdi-mdi) / den

	// фаза B: копим Period значений DX и сеем ADX их средним
	firstDX := a.Period + 2
	seedADX := 2*a.Period + 1

	if !a.ready {
		if a.count >= firstDX && a.count <= seedADX {
			a.dxSum += dx
		}
		if a.count == seedADX {
			a.adx = a.dxSum / p
			a.ready = true
			return a.adx, true
		}
		return 0, false
	}

	a.adx = (a.adx*(p-1) + dx) / p
	return a.adx, true
}
