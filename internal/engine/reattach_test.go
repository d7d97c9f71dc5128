package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/events"
	"derivbot/internal/models"
)

func newTestReattacher(gw *fakeGateway) (*Reattacher, *Ledger, *events.Bus) {
	bus := events.NewBus()
	ledger := NewLedger()
	return NewReattacher(gw, ledger, bus, execLimits()), ledger, bus
}

func TestReattachSynthesizesLevelsFromConfig(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "BTCUSDT", Direction: models.DirectionLong,
		Quantity: 0.5, EntryPrice: 50_000, MarkPrice: 50_100,
	}}
	r, ledger, bus := newTestReattacher(gw)

	ch, unsub := bus.Subscribe(16)
	defer unsub()

	n, err := r.Reattach(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, ok := ledger.Get("BTCUSDT")
	require.True(t, ok)
	// ни на позиции, ни в ордерах уровней нет: 2% вниз, 3% вверх от входа
	assert.InDelta(t, 49_000, p.StopLoss, 1e-9)
	assert.InDelta(t, 51_500, p.TakeProfit, 1e-9)
	assert.Equal(t, models.SourceReattached, p.Source)
	assert.Nil(t, p.EntryTime)

	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeReattachedPosition, evs[0].Type)
	assert.Equal(t, events.SeverityWarning, evs[0].Severity)
	assert.Contains(t, evs[0].Warning, "синтезированы")
}

func TestReattachUsesExchangePositionLevels(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "BTCUSDT", Direction: models.DirectionLong,
		Quantity: 0.5, EntryPrice: 50_000, MarkPrice: 50_100,
		StopLoss: 48_000, TakeProfit: 52_000,
	}}
	r, ledger, bus := newTestReattacher(gw)

	ch, unsub := bus.Subscribe(16)
	defer unsub()

	_, err := r.Reattach(context.Background())
	require.NoError(t, err)

	p, _ := ledger.Get("BTCUSDT")
	assert.InDelta(t, 48_000, p.StopLoss, 1e-9)
	assert.InDelta(t, 52_000, p.TakeProfit, 1e-9)

	// уровни на позиции полные: за ордерами ходить незачем
	assert.Zero(t, gw.ordersCalls)

	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Contains(t, evs[0].Warning, "уровни с биржи")
}

func TestReattachRecoversLevelsFromOpenOrders(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "BTCUSDT", Direction: models.DirectionLong,
		Quantity: 0.5, EntryPrice: 50_000, MarkPrice: 50_100,
	}}
	gw.orders["BTCUSDT"] = []models.OpenOrder{
		{OrderID: "c1", Symbol: "BTCUSDT", StopLoss: 49_500, ReduceOnly: true},
		{OrderID: "c2", Symbol: "BTCUSDT", TakeProfit: 51_000, ReduceOnly: true},
	}
	r, ledger, bus := newTestReattacher(gw)

	ch, unsub := bus.Subscribe(16)
	defer unsub()

	_, err := r.Reattach(context.Background())
	require.NoError(t, err)

	p, _ := ledger.Get("BTCUSDT")
	assert.InDelta(t, 49_500, p.StopLoss, 1e-9)
	assert.InDelta(t, 51_000, p.TakeProfit, 1e-9)
	assert.Equal(t, 1, gw.ordersCalls)

	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Contains(t, evs[0].Warning, "уровни с биржи")
}

func TestReattachSynthesizesMissingLevelOnly(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "BTCUSDT", Direction: models.DirectionLong,
		Quantity: 0.5, EntryPrice: 50_000, MarkPrice: 50_100,
	}}
	gw.orders["BTCUSDT"] = []models.OpenOrder{
		{OrderID: "c1", Symbol: "BTCUSDT", StopLoss: 49_500, ReduceOnly: true},
	}
	r, ledger, bus := newTestReattacher(gw)

	ch, unsub := bus.Subscribe(16)
	defer unsub()

	_, err := r.Reattach(context.Background())
	require.NoError(t, err)

	// стоп нашёлся в ордерах, тейк пришлось синтезировать
	p, _ := ledger.Get("BTCUSDT")
	assert.InDelta(t, 49_500, p.StopLoss, 1e-9)
	assert.InDelta(t, 51_500, p.TakeProfit, 1e-9)

	evs := drainEvents(ch)
	require.Len(t, evs, 1)
	assert.Contains(t, evs[0].Warning, "синтезированы")
}

func TestReattachShortSideAware(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "ETHUSDT", Direction: models.DirectionShort,
		Quantity: 2, EntryPrice: 100, MarkPrice: 99,
	}}
	r, ledger, _ := newTestReattacher(gw)

	_, err := r.Reattach(context.Background())
	require.NoError(t, err)

	// для шорта стоп выше входа, тейк ниже
	p, _ := ledger.Get("ETHUSDT")
	assert.InDelta(t, 102, p.StopLoss, 1e-9)
	assert.InDelta(t, 97, p.TakeProfit, 1e-9)
}

func TestReattachIdempotent(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "BTCUSDT", Direction: models.DirectionLong,
		Quantity: 0.5, EntryPrice: 50_000, MarkPrice: 50_100,
	}}
	r, ledger, _ := newTestReattacher(gw)

	n, err := r.Reattach(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.Reattach(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, ledger.Open())
}

func TestReattachSkipsZeroQuantity(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positions = []models.ExchangePosition{{
		Symbol: "BTCUSDT", Direction: models.DirectionLong,
		Quantity: 0, EntryPrice: 50_000,
	}}
	r, ledger, _ := newTestReattacher(gw)

	n, err := r.Reattach(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, ledger.Open())
}

func TestReattachPropagatesExchangeError(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.positionsErr = errors.New("positions endpoint down")
	r, ledger, _ := newTestReattacher(gw)

	n, err := r.Reattach(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, ledger.Open())
}
