// Package timertest provides a manual clock and ticker so countdowns can be driven without
// waiting for real time to pass.
package timertest

import (
	"sync"
	"time"

	"github.com/victornm/quizplay/internal/timer"
)

// Clock is a manual time source that also hands out manual tickers.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*Ticker
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// NewTicker satisfies timer.NewTickerFunc.
func (c *Clock) NewTicker(d time.Duration) timer.Ticker {
	t := &Ticker{
		clock:   c,
		period:  d,
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}

	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()

	return t
}

// Ticker returns the most recently created ticker, or nil if none was created.
func (c *Clock) Ticker() *Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// TickerCount returns how many tickers were created so far.
func (c *Clock) TickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tickers)
}

// Ticker is driven by calls to Tick.
type Ticker struct {
	clock   *Clock
	period  time.Duration
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *Ticker) C() <-chan time.Time { return t.c }

func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *Ticker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// Tick advances the clock by one period and blocks until the tick is received.
// It reports false if the ticker was stopped before anyone received the tick.
// A received tick is fully handled once the next Tick call returns.
func (t *Ticker) Tick() bool {
	t.clock.Advance(t.period)
	now := t.clock.Now()

	select {
	case t.c <- now:
		return true
	case <-t.stopped:
		return false
	}
}

// TickN delivers up to n ticks and returns how many were received.
func (t *Ticker) TickN(n int) int {
	for i := 0; i < n; i++ {
		if !t.Tick() {
			return i
		}
	}
	return n
}
