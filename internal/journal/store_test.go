package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/events"
)

func TestDisabledStoreIsNoop(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	require.False(t, s.Enabled())

	ctx := context.Background()
	assert.NoError(t, s.InsertTrade(ctx, TradeRow{Symbol: "BTCUSDT"}))
	assert.NoError(t, s.InsertEvent(ctx, events.TradeExecuted("BTCUSDT", "Buy", 1, 100)))
}

func TestTradeRowFromEvent(t *testing.T) {
	t.Parallel()

	opened := events.TradeExecuted("BTCUSDT", "Buy", 0.5, 50000)
	row, ok := tradeRowFromEvent(opened)
	require.True(t, ok)
	assert.Equal(t, "open", row.Action)
	assert.Equal(t, "BTCUSDT", row.Symbol)
	assert.Equal(t, "Buy", row.Side)
	assert.Equal(t, 0.5, row.Qty)
	assert.Equal(t, 50000.0, row.Price)
	assert.WithinDuration(t, time.Now().UTC(), row.At, time.Minute)

	closed := events.TradeClosed("BTCUSDT", "Sell", 0.5, 51000, 12.5, "take_profit")
	row, ok = tradeRowFromEvent(closed)
	require.True(t, ok)
	assert.Equal(t, "close", row.Action)
	assert.Equal(t, 12.5, row.PnL)
	assert.Equal(t, "take_profit", row.Reason)

	_, ok = tradeRowFromEvent(events.GuardTransition("NORMAL", "REDUCED", "drawdown"))
	assert.False(t, ok)
}
