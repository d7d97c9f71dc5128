package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/models"
)

func TestLedgerTrackAndGet(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	assert.Zero(t, l.Open())
	assert.False(t, l.Has("BTCUSDT"))

	l.Track(position("BTCUSDT", models.DirectionLong, 1, 100, 98, 103))

	require.True(t, l.Has("BTCUSDT"))
	p, ok := l.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, p.Direction)
	assert.Equal(t, 1, l.Open())
}

func TestLedgerTrackOverwritesSameSymbol(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Track(position("BTCUSDT", models.DirectionLong, 1, 100, 98, 103))
	l.Track(position("BTCUSDT", models.DirectionLong, 2, 101, 99, 104))

	assert.Equal(t, 1, l.Open())
	p, _ := l.Get("BTCUSDT")
	assert.InDelta(t, 2, p.Quantity, 1e-12)
	assert.InDelta(t, 101, p.EntryPrice, 1e-12)
}

func TestLedgerDrop(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Track(position("BTCUSDT", models.DirectionShort, 1, 100, 102, 97))

	p, ok := l.Drop("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, p.Direction)
	assert.False(t, l.Has("BTCUSDT"))

	_, ok = l.Drop("BTCUSDT")
	assert.False(t, ok)
}

func TestLedgerSnapshotSortedBySymbol(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Track(position("SOLUSDT", models.DirectionLong, 1, 100, 98, 103))
	l.Track(position("BTCUSDT", models.DirectionLong, 1, 100, 98, 103))
	l.Track(position("ETHUSDT", models.DirectionLong, 1, 100, 98, 103))

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "BTCUSDT", snap[0].Symbol)
	assert.Equal(t, "ETHUSDT", snap[1].Symbol)
	assert.Equal(t, "SOLUSDT", snap[2].Symbol)
}
