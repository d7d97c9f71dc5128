package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/models"
)

func execLimits() models.RiskLimits {
	return models.RiskLimits{
		MaxPositionSizePct: 0.10,
		StopLossPct:        0.02,
		TakeProfitPct:      0.03,
	}
}

func newTestExecutor(gw *fakeGateway, lim models.RiskLimits) *Executor {
	ex := NewExecutor(gw, lim)
	ex.retryInitial = time.Millisecond
	return ex
}

func TestExecuteFloorsQtyToStep(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limits["BTCUSDT"] = models.InstrumentLimits{
		Symbol: "BTCUSDT", QtyStep: 0.1, MinOrderQty: 0.1, MinNotional: 5, TickSize: 0.5,
	}
	ex := newTestExecutor(gw, execLimits())

	sig := qsig("BTCUSDT", 0.8, 0.5)
	sig.Quantity = 1.234

	res, err := ex.Execute(context.Background(), sig, 10_000)
	require.NoError(t, err)
	require.False(t, res.Rejected)

	require.Len(t, gw.placed, 1)
	assert.InDelta(t, 1.2, gw.placed[0].Qty, 1e-9)
	assert.InDelta(t, 1.2, res.Position.Quantity, 1e-9)
	assert.InDelta(t, 98, res.Position.StopLoss, 1e-9)
	assert.InDelta(t, 103, res.Position.TakeProfit, 1e-9)
	assert.Equal(t, models.SourceBot, res.Position.Source)
	require.NotNil(t, res.Position.EntryTime)
	assert.NotEmpty(t, res.OrderID)
}

func TestExecuteRaisesToMinOrderQty(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limits["BTCUSDT"] = models.InstrumentLimits{
		Symbol: "BTCUSDT", QtyStep: 0.1, MinOrderQty: 0.1, MinNotional: 5,
	}
	ex := newTestExecutor(gw, execLimits())

	sig := qsig("BTCUSDT", 0.8, 0.5)
	sig.Quantity = 0.04

	res, err := ex.Execute(context.Background(), sig, 10_000)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.InDelta(t, 0.1, gw.placed[0].Qty, 1e-9)
}

func TestExecuteClampsToMaxOrderQty(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limits["BTCUSDT"] = models.InstrumentLimits{
		Symbol: "BTCUSDT", QtyStep: 0.1, MinOrderQty: 0.1, MaxOrderQty: 1.0,
	}
	ex := newTestExecutor(gw, execLimits())

	sig := qsig("BTCUSDT", 0.8, 0.5)
	sig.Quantity = 5

	res, err := ex.Execute(context.Background(), sig, 10_000)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.InDelta(t, 1.0, gw.placed[0].Qty, 1e-9)
}

func TestExecuteBumpsQtyToMinNotional(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limits["BTCUSDT"] = models.InstrumentLimits{
		Symbol: "BTCUSDT", QtyStep: 0.001, MinOrderQty: 0.001, MinNotional: 5,
	}
	ex := newTestExecutor(gw, execLimits())

	// номинал 2 < 5: количество поднимается до ближайшего шага сверху
	sig := qsig("BTCUSDT", 0.8, 0.5)
	sig.Quantity = 0.02

	res, err := ex.Execute(context.Background(), sig, 10_000)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.InDelta(t, 0.05, gw.placed[0].Qty, 1e-9)
}

func TestExecuteRejectsWhenMinNotionalExceedsRiskCap(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limits["BTCUSDT"] = models.InstrumentLimits{
		Symbol: "BTCUSDT", QtyStep: 0.001, MinOrderQty: 0.001, MinNotional: 5,
	}
	ex := newTestExecutor(gw, execLimits())

	// кап 10% от 40 = 4, а минимальный номинал 5: вход невозможен
	sig := qsig("BTCUSDT", 0.8, 0.5)
	sig.Quantity = 0.02

	res, err := ex.Execute(context.Background(), sig, 40)
	require.NoError(t, err)
	require.True(t, res.Rejected)
	assert.Equal(t, RejectMinNotional, res.Reason)
	assert.Empty(t, gw.placed)
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.placeFails = 2
	ex := newTestExecutor(gw, execLimits())

	res, err := ex.Execute(context.Background(), qsig("BTCUSDT", 0.8, 0.5), 10_000)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, 3, gw.placeCalls)
	assert.Len(t, gw.placed, 1)
}

func TestExecuteGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.placeFails = 10
	ex := newTestExecutor(gw, execLimits())

	_, err := ex.Execute(context.Background(), qsig("BTCUSDT", 0.8, 0.5), 10_000)
	require.Error(t, err)
	assert.ErrorContains(t, err, "exchange unavailable")
	assert.Equal(t, 3, gw.placeCalls)
	assert.Empty(t, gw.placed)
}

func TestExecuteFallsBackWhenLimitsUnavailable(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limitsErr = errors.New("rate limited")
	ex := newTestExecutor(gw, execLimits())

	sig := qsig("BTCUSDT", 0.8, 0.5)
	sig.Quantity = 0.0004
	sig.Price = 50_000

	res, err := ex.Execute(context.Background(), sig, 100_000)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	// консервативный фолбэк: шаг и минимум 0.001
	assert.InDelta(t, 0.001, gw.placed[0].Qty, 1e-9)

	// фолбэк не кэшируется: следующий вызов снова идёт на биржу
	_, err = ex.Execute(context.Background(), sig, 100_000)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.limitsCalls)
}

func TestInstrumentLimitsCached(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.limits["BTCUSDT"] = models.InstrumentLimits{
		Symbol: "BTCUSDT", QtyStep: 0.001, MinOrderQty: 0.001,
	}
	ex := newTestExecutor(gw, execLimits())

	for i := 0; i < 3; i++ {
		_, err := ex.Execute(context.Background(), qsig("BTCUSDT", 0.8, 0.5), 10_000)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, gw.limitsCalls)
}

func TestLevelsRoundAwayFromEntry(t *testing.T) {
	t.Parallel()

	ex := newTestExecutor(newFakeGateway(), execLimits())

	// лонг: стоп вниз до тика, тейк вверх — оба уровня уходят от входа
	sl, tp := ex.levels(models.DirectionLong, 100, 0.3)
	assert.InDelta(t, 97.8, sl, 1e-9)
	assert.InDelta(t, 103.2, tp, 1e-9)

	// шорт зеркально: стоп вверх, тейк вниз
	sl, tp = ex.levels(models.DirectionShort, 100, 0.3)
	assert.InDelta(t, 102, sl, 1e-9)
	assert.InDelta(t, 96.9, tp, 1e-9)

	// нулевой тик — уровни без округления
	sl, tp = ex.levels(models.DirectionLong, 100, 0)
	assert.InDelta(t, 98, sl, 1e-12)
	assert.InDelta(t, 103, tp, 1e-12)
}
