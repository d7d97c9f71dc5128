package engine

import (
	"sort"
	"sync"
	"time"

	"derivbot/internal/models"
)

// Причины выбытия кандидата из очереди до исполнения.
const (
	DropExpired   = "expired"
	DropQueueFull = "queue_full"
)

type queueItem struct {
	sig models.Signal
	seq uint64 // порядок прихода, тай-брейк при равном ранге
}

// ранг: confidence по убыванию, затем strength по убыванию, затем приход
func rankLess(a, b queueItem) bool {
	if a.sig.Confidence != b.sig.Confidence {
		return a.sig.Confidence > b.sig.Confidence
	}
	if a.sig.Strength != b.sig.Strength {
		return a.sig.Strength > b.sig.Strength
	}
	return a.seq < b.seq
}

// Queue — ограниченная очередь кандидатов на вход. Пишет и дренирует её
// одна горутина движка, мьютекс закрывает читателей статуса.
type Queue struct {
	mu    sync.Mutex
	items []queueItem
	seq   uint64

	ttl      time.Duration
	capacity int

	now func() time.Time
}

func NewQueue(ttl time.Duration, capacity int) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	return &Queue{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Push вставляет кандидата по рангу. При переполнении вылетает худший,
// возможно только что вставленный; вылетевший возвращается для отчёта.
func (q *Queue) Push(sig models.Signal) *models.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	q.items = append(q.items, queueItem{sig: sig, seq: q.seq})
	sort.Slice(q.items, func(i, j int) bool { return rankLess(q.items[i], q.items[j]) })

	if len(q.items) <= q.capacity {
		return nil
	}
	worst := q.items[len(q.items)-1].sig
	q.items = q.items[:len(q.items)-1]
	return &worst
}

// Expire выкидывает кандидатов старше TTL и возвращает их для отчёта.
// Протухший сигнал не перевыставляется: цена входа уже неактуальна.
func (q *Queue) Expire() []models.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-q.ttl)
	var expired []models.Signal
	rest := q.items[:0]
	for _, it := range q.items {
		if it.sig.EnqueuedAt.Before(cutoff) {
			expired = append(expired, it.sig)
			continue
		}
		rest = append(rest, it)
	}
	q.items = rest
	return expired
}

// PopEligible снимает до slots кандидатов строго в порядке ранга, пропуская
// символы, по которым позиция уже есть или берётся в этом же проходе.
// Пропущенные остаются в очереди на своих местах.
func (q *Queue) PopEligible(slots int, hasOpen func(symbol string) bool) []models.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	if slots <= 0 || len(q.items) == 0 {
		return nil
	}

	taken := make(map[string]bool, slots)
	var picked []models.Signal
	rest := q.items[:0]
	for _, it := range q.items {
		if len(picked) < slots && !taken[it.sig.Symbol] && !hasOpen(it.sig.Symbol) {
			picked = append(picked, it.sig)
			taken[it.sig.Symbol] = true
			continue
		}
		rest = append(rest, it)
	}
	q.items = rest
	return picked
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot — копия очереди в порядке ранга, для статуса и отладки.
func (q *Queue) Snapshot() []models.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Signal, len(q.items))
	for i, it := range q.items {
		out[i] = it.sig
	}
	return out
}
