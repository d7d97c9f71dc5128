package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) Set(t time.Time)         { c.t = t }

func newTestSwitch(clock *fakeClock) *KillSwitch {
	k := NewKillSwitch(testLimits(), 10, 5*time.Minute)
	k.now = clock.Now
	return k
}

func TestKillSwitchDailyLoss(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	k := newTestSwitch(clock)

	tripped, _ := k.UpdateEquity(10_000)
	require.False(t, tripped)

	// -4.9% за день: ещё в пределах
	clock.Advance(time.Hour)
	tripped, _ = k.UpdateEquity(9_510)
	require.False(t, tripped)

	// -5.1%: порог 5% пробит
	clock.Advance(time.Hour)
	tripped, reason := k.UpdateEquity(9_490)
	require.True(t, tripped)
	assert.Equal(t, TripDailyLoss, reason)
}

func TestKillSwitchDailyResetAtMidnightUTC(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)}
	k := newTestSwitch(clock)

	tripped, _ := k.UpdateEquity(10_000)
	require.False(t, tripped)

	// новые сутки: база дневного убытка пересчитывается от текущего equity
	clock.Set(time.Date(2024, 3, 2, 0, 5, 0, 0, time.UTC))
	tripped, _ = k.UpdateEquity(9_700)
	require.False(t, tripped)

	// -4% от новой базы 9700 — не срабатывает, хотя от вчерашней было бы -6.7%
	clock.Advance(time.Hour)
	tripped, _ = k.UpdateEquity(9_312)
	assert.False(t, tripped)
}

func TestKillSwitchDrawdownFromPeak(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	k := NewKillSwitch(testLimits(), 10, 5*time.Minute)
	k.now = clock.Now

	require.NotPanics(t, func() { k.UpdateEquity(10_000) })
	clock.Set(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	k.UpdateEquity(12_000) // новый пик, заодно новая дневная база

	// просадка считается от пика 12000, а не от дневной базы:
	// 10300/12000 = -14.2% — ещё нет
	clock.Set(time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC))
	tripped, _ := k.UpdateEquity(10_300)
	require.False(t, tripped)

	// 10100/12000 = -15.8% — порог 15% пробит
	clock.Set(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	tripped, reason := k.UpdateEquity(10_100)
	require.True(t, tripped)
	assert.Equal(t, TripMaxDrawdown, reason)
}

func TestKillSwitchAPIErrorWindow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	k := newTestSwitch(clock)

	// девять ошибок подряд — порог 10 не достигнут
	for i := 0; i < 9; i++ {
		tripped, _ := k.RecordAPIError()
		require.False(t, tripped)
		clock.Advance(10 * time.Second)
	}

	// старые ошибки выпали из окна 5m — счётчик не копится вечно
	clock.Advance(6 * time.Minute)
	tripped, _ := k.RecordAPIError()
	require.False(t, tripped)
	assert.Equal(t, 1, k.Snapshot().APIErrors)

	// десять свежих ошибок в окне — срабатывание
	for i := 0; i < 9; i++ {
		clock.Advance(time.Second)
		tripped, _ = k.RecordAPIError()
	}
	require.True(t, tripped)
	_, reason := k.Tripped()
	assert.Equal(t, TripAPIErrors, reason)
}

func TestKillSwitchDoesNotSelfRecover(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	k := newTestSwitch(clock)

	k.UpdateEquity(10_000)
	tripped, _ := k.UpdateEquity(9_400)
	require.True(t, tripped)

	// equity вернулось — переключатель всё равно залип
	clock.Advance(time.Hour)
	tripped, reason := k.UpdateEquity(10_500)
	require.True(t, tripped)
	assert.Equal(t, TripDailyLoss, reason)

	// и через сутки тоже
	clock.Set(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	tripped, _ = k.UpdateEquity(11_000)
	assert.True(t, tripped)
}

func TestKillSwitchSnapshot(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	k := newTestSwitch(clock)

	k.UpdateEquity(10_000)
	k.UpdateEquity(9_800)
	k.RecordAPIError()

	st := k.Snapshot()
	assert.False(t, st.Tripped)
	assert.InDelta(t, 0.02, st.DailyLossPct, 1e-12)
	assert.InDelta(t, 0.02, st.DrawdownPct, 1e-12)
	assert.Equal(t, 1, st.APIErrors)
}
