package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derivbot/internal/events"
)

type fakeSender struct{ ch chan string }

func (f *fakeSender) Send(m string) { f.ch <- m }

func TestFormatCoversEventTypes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		event events.Event
		want  string
	}{
		{events.GuardTransition("NORMAL", "REDUCED", "win_rate"), "Guard: NORMAL"},
		{events.KillSwitchTriggered("daily_loss_limit"), "KILL SWITCH"},
		{events.TradeExecuted("BTCUSDT", "Buy", 0.5, 50000), "Вход BTCUSDT"},
		{events.TradeClosed("BTCUSDT", "Sell", 0.5, 51000, 12.5, "take_profit"), "Выход BTCUSDT"},
		{events.SignalRejected("ETHUSDT", "confidence_below_threshold"), "отклонён ETHUSDT"},
		{events.ReattachedPosition("BTCUSDT", "SL/TP синтезированы из конфига"), "Подхвачена позиция"},
	}

	for _, tc := range cases {
		assert.Contains(t, Format(tc.event), tc.want)
	}
}

func TestFormatLossGetsCrossEmoji(t *testing.T) {
	t.Parallel()

	loss := Format(events.TradeClosed("BTCUSDT", "Sell", 1, 100, -25, "stop_loss"))
	win := Format(events.TradeClosed("BTCUSDT", "Sell", 1, 100, 25, "take_profit"))

	assert.True(t, strings.HasPrefix(loss, "❌"))
	assert.True(t, strings.HasPrefix(win, "✅"))
}

func TestRelayForwardsAndSkipsRejections(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	fake := &fakeSender{ch: make(chan string, 16)}
	r := &Relay{bus: bus, tg: fake}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	// ждём, пока подписка внутри Start встанет
	require.Eventually(t, func() bool {
		bus.Publish(events.TradeExecuted("BTCUSDT", "Buy", 1, 100))
		select {
		case m := <-fake.ch:
			return strings.Contains(m, "Вход BTCUSDT")
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// отклонённый сигнал фильтруется, следующий kill switch проходит
	bus.Publish(events.SignalRejected("BTCUSDT", "expired"))
	bus.Publish(events.KillSwitchTriggered("max_drawdown"))

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-fake.ch:
			require.NotContains(t, m, "отклонён")
			if strings.Contains(m, "KILL SWITCH") {
				return
			}
		case <-deadline:
			t.Fatal("событие kill switch не дошло")
		}
	}
}
