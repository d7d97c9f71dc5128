package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/models"
)

func qsig(symbol string, conf, strength float64) models.Signal {
	return models.Signal{
		Symbol:     symbol,
		Direction:  models.DirectionLong,
		Confidence: conf,
		Strength:   strength,
		Price:      100,
		Quantity:   1,
		EnqueuedAt: time.Now().UTC(),
	}
}

func noOpen(string) bool { return false }

func TestQueueOrdersByConfidence(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	require.Nil(t, q.Push(qsig("ETHUSDT", 0.65, 0.5)))
	require.Nil(t, q.Push(qsig("BTCUSDT", 0.90, 0.5)))
	require.Nil(t, q.Push(qsig("SOLUSDT", 0.75, 0.5)))

	snap := q.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "BTCUSDT", snap[0].Symbol)
	assert.Equal(t, "SOLUSDT", snap[1].Symbol)
	assert.Equal(t, "ETHUSDT", snap[2].Symbol)
}

func TestQueueStrengthBreaksConfidenceTie(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	q.Push(qsig("ETHUSDT", 0.80, 0.4))
	q.Push(qsig("BTCUSDT", 0.80, 0.9))

	snap := q.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "BTCUSDT", snap[0].Symbol)
}

func TestQueueEqualRankKeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	q.Push(qsig("AUSDT", 0.80, 0.5))
	q.Push(qsig("BUSDT", 0.80, 0.5))
	q.Push(qsig("CUSDT", 0.80, 0.5))

	snap := q.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "AUSDT", snap[0].Symbol)
	assert.Equal(t, "BUSDT", snap[1].Symbol)
	assert.Equal(t, "CUSDT", snap[2].Symbol)
}

func TestQueueEvictsWorstWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 2)
	require.Nil(t, q.Push(qsig("BTCUSDT", 0.90, 0.5)))
	require.Nil(t, q.Push(qsig("ETHUSDT", 0.80, 0.5)))

	// слабее всех в очереди: вылетает сам только что пришедший
	dropped := q.Push(qsig("SOLUSDT", 0.70, 0.5))
	require.NotNil(t, dropped)
	assert.Equal(t, "SOLUSDT", dropped.Symbol)
	assert.Equal(t, 2, q.Len())

	// сильнее хвоста: вылетает прежний худший
	dropped = q.Push(qsig("XRPUSDT", 0.95, 0.5))
	require.NotNil(t, dropped)
	assert.Equal(t, "ETHUSDT", dropped.Symbol)

	snap := q.Snapshot()
	assert.Equal(t, "XRPUSDT", snap[0].Symbol)
	assert.Equal(t, "BTCUSDT", snap[1].Symbol)
}

func TestQueueExpireDropsStale(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q := NewQueue(time.Hour, 10)
	q.now = func() time.Time { return base }

	stale := qsig("BTCUSDT", 0.90, 0.5)
	stale.EnqueuedAt = base.Add(-2 * time.Hour)
	fresh := qsig("ETHUSDT", 0.80, 0.5)
	fresh.EnqueuedAt = base.Add(-30 * time.Minute)

	q.Push(stale)
	q.Push(fresh)

	expired := q.Expire()
	require.Len(t, expired, 1)
	assert.Equal(t, "BTCUSDT", expired[0].Symbol)

	require.Equal(t, 1, q.Len())
	assert.Equal(t, "ETHUSDT", q.Snapshot()[0].Symbol)

	// повторный вызов ничего не находит
	assert.Empty(t, q.Expire())
}

func TestQueuePopEligibleSkipsOpenSymbols(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	q.Push(qsig("BTCUSDT", 0.90, 0.5))
	q.Push(qsig("ETHUSDT", 0.80, 0.5))

	picked := q.PopEligible(2, func(s string) bool { return s == "BTCUSDT" })
	require.Len(t, picked, 1)
	assert.Equal(t, "ETHUSDT", picked[0].Symbol)

	// пропущенный остался в очереди на своём месте
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "BTCUSDT", q.Snapshot()[0].Symbol)
}

func TestQueuePopEligibleTakesSymbolOncePerPass(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	q.Push(qsig("BTCUSDT", 0.90, 0.5))
	q.Push(qsig("BTCUSDT", 0.85, 0.5))
	q.Push(qsig("ETHUSDT", 0.80, 0.5))

	// два сигнала по одному символу не должны исполниться в одном проходе
	picked := q.PopEligible(3, noOpen)
	require.Len(t, picked, 2)
	assert.Equal(t, "BTCUSDT", picked[0].Symbol)
	assert.InDelta(t, 0.90, picked[0].Confidence, 1e-12)
	assert.Equal(t, "ETHUSDT", picked[1].Symbol)

	require.Equal(t, 1, q.Len())
	assert.InDelta(t, 0.85, q.Snapshot()[0].Confidence, 1e-12)
}

func TestQueuePopEligibleHonorsSlots(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	q.Push(qsig("BTCUSDT", 0.75, 0.5))
	q.Push(qsig("ETHUSDT", 0.65, 0.5))

	// один слот: уходит только старший по рангу
	picked := q.PopEligible(1, noOpen)
	require.Len(t, picked, 1)
	assert.Equal(t, "BTCUSDT", picked[0].Symbol)

	require.Equal(t, 1, q.Len())
	assert.Equal(t, "ETHUSDT", q.Snapshot()[0].Symbol)
}

func TestQueuePopEligibleZeroSlots(t *testing.T) {
	t.Parallel()

	q := NewQueue(time.Hour, 10)
	q.Push(qsig("BTCUSDT", 0.75, 0.5))

	assert.Nil(t, q.PopEligible(0, noOpen))
	assert.Equal(t, 1, q.Len())
}
