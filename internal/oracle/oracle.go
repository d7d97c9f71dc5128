package oracle

import (
	"context"
	"errors"
	"sync/atomic"

	"derivbot/internal/models"
)

// ErrNotInstalled — оракула нет; вызывающая сторона обязана считать
// сигнал неоценённым и не торговать по нему.
var ErrNotInstalled = errors.New("oracle: not installed")

// Features — вектор признаков сигнала на момент скоринга.
type Features struct {
	Symbol           string
	Direction        models.Direction
	Strength         float64
	ADX              float64
	VolatilityRatio  float64
	RegimeConfidence float64
}

// Oracle оценивает вероятность [0,1] того, что сигнал отработает в плюс.
// Направление оракул не выбирает — оно приходит от первичного генератора.
type Oracle interface {
	Score(ctx context.Context, f Features) (float64, error)
}

// Registry — точка атомарной горячей подмены оракула. Читатели видят
// либо старую модель целиком, либо новую, но никогда полуобновлённую.
type Registry struct {
	cur atomic.Pointer[holder]
}

type holder struct {
	o Oracle
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Install подменяет оракула для всех последующих Score.
func (r *Registry) Install(o Oracle) {
	r.cur.Store(&holder{o: o})
}

// Score проксирует в текущего оракула. Без установленного оракула —
// отказ, не нулевая уверенность молча.
func (r *Registry) Score(ctx context.Context, f Features) (float64, error) {
	h := r.cur.Load()
	if h == nil || h.o == nil {
		return 0, ErrNotInstalled
	}
	return h.o.Score(ctx, f)
}
