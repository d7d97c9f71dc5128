package oracle

import "context"

// Baseline — эвристический скорер на случай, когда обученной модели
// нет: смесь силы первичного сигнала и уверенности режима. Детерминирован
// и не ходит никуда по сети, поэтому годится и как дефолт в проде,
// и как опора в тестах.
type Baseline struct {
	StrengthWeight float64
	RegimeWeight   float64
}

func NewBaseline() *Baseline {
	return &Baseline{StrengthWeight: 0.6, RegimeWeight: 0.4}
}

func (b *Baseline) Score(_ context.Context, f Features) (float64, error) {
	s := b.StrengthWeight*f.Strength + b.RegimeWeight*f.RegimeConfidence
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return s, nil
}
