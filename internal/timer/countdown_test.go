package timer_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizplay/internal/timer"
	"github.com/victornm/quizplay/internal/timer/timertest"
)

const waitFor = time.Second

func TestCountdown_ExpiresOnce(t *testing.T) {
	clock := timertest.NewClock(time.Unix(0, 0))

	var (
		mu    sync.Mutex
		ticks []int
	)
	c := timer.New(timer.Config{
		NewTickerFunc: clock.NewTicker,
		OnTick: func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
	})

	var expired atomic.Int32
	c.Start(3, func() { expired.Add(1) })
	require.True(t, c.Running())
	require.Equal(t, 3, c.Remaining())

	tk := clock.Ticker()
	require.Equal(t, 3, tk.TickN(3))
	require.Eventually(t, tk.Stopped, waitFor, time.Millisecond, "ticker should stop after expiry")

	// Extra ticks after expiry are never delivered.
	assert.False(t, tk.Tick())
	assert.Equal(t, int32(1), expired.Load())
	assert.False(t, c.Running())
	assert.Equal(t, 0, c.Remaining())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1, 0}, ticks)
}

func TestCountdown_StopPreventsExpiry(t *testing.T) {
	clock := timertest.NewClock(time.Unix(0, 0))
	c := timer.New(timer.Config{NewTickerFunc: clock.NewTicker})

	var expired atomic.Int32
	c.Start(2, func() { expired.Add(1) })

	tk := clock.Ticker()
	require.True(t, tk.Tick())
	require.Equal(t, 1, c.Remaining())

	c.Stop()
	c.Stop() // idempotent

	tk.Tick()
	require.Eventually(t, tk.Stopped, waitFor, time.Millisecond)
	assert.Equal(t, int32(0), expired.Load())
	assert.False(t, c.Running())
	assert.Equal(t, 1, c.Remaining(), "remaining keeps its value after stop")
}

func TestCountdown_StopWhenIdle(t *testing.T) {
	c := timer.New(timer.Config{NewTickerFunc: timertest.NewClock(time.Unix(0, 0)).NewTicker})

	assert.NotPanics(t, c.Stop)
	assert.False(t, c.Running())
}

func TestCountdown_RestartDiscardsPreviousRun(t *testing.T) {
	clock := timertest.NewClock(time.Unix(0, 0))
	c := timer.New(timer.Config{NewTickerFunc: clock.NewTicker})

	var first, second atomic.Int32
	c.Start(5, func() { first.Add(1) })
	old := clock.Ticker()
	require.Equal(t, 2, old.TickN(2))

	c.Start(2, func() { second.Add(1) })
	require.Equal(t, 2, c.Remaining())
	require.Equal(t, 2, clock.TickerCount())
	require.Eventually(t, old.Stopped, waitFor, time.Millisecond, "previous ticker should be released")

	cur := clock.Ticker()
	require.Equal(t, 2, cur.TickN(2))
	require.Eventually(t, cur.Stopped, waitFor, time.Millisecond)

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestCountdown_RealTicker(t *testing.T) {
	if testing.Short() {
		t.Skip("uses wall clock")
	}

	c := timer.New(timer.Config{})

	done := make(chan struct{})
	c.Start(1, func() { close(done) })

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("countdown did not expire")
	}
}
