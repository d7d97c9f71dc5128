package engine

import (
	"sort"
	"sync"

	"derivbot/internal/models"
)

// Ledger — позиции, за которыми следит процесс. Ключ — символ: инвариант
// "не больше одной позиции на символ" живёт здесь. Источник истины — биржа,
// леджер лишь сверяемый кэш.
type Ledger struct {
	mu  sync.RWMutex
	pos map[string]models.Position
}

func NewLedger() *Ledger {
	return &Ledger{pos: make(map[string]models.Position)}
}

// Track записывает позицию. Повторный Track того же символа перезаписывает
// запись: новые данные всегда приходят с биржи.
func (l *Ledger) Track(p models.Position) {
	l.mu.Lock()
	l.pos[p.Symbol] = p
	l.mu.Unlock()
}

func (l *Ledger) Drop(symbol string) (models.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pos[symbol]
	if ok {
		delete(l.pos, symbol)
	}
	return p, ok
}

func (l *Ledger) Get(symbol string) (models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.pos[symbol]
	return p, ok
}

func (l *Ledger) Has(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.pos[symbol]
	return ok
}

func (l *Ledger) Open() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pos)
}

// Snapshot — копия позиций, отсортированная по символу.
func (l *Ledger) Snapshot() []models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Position, 0, len(l.pos))
	for _, p := range l.pos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
