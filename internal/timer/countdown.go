// Package timer provides the one-second countdown shared by quiz questions and puzzle attempts.
//
// Countdowns live in process memory only. They are not persisted and do not survive a restart;
// a session whose process goes away is abandoned and never scored.
package timer

import (
	"sync"
	"time"
)

// Resolution is the tick period of every countdown.
const Resolution = time.Second

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type NewTickerFunc func(d time.Duration) Ticker

// NewTicker is the wall-clock NewTickerFunc.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type Config struct {
	NewTickerFunc NewTickerFunc
	// OnTick is called after every tick with the seconds left. It runs on the countdown
	// goroutine without any countdown lock held.
	OnTick func(remaining int)
}

// Countdown counts down whole seconds and raises expiry at most once per Start.
type Countdown struct {
	newTicker NewTickerFunc
	onTick    func(remaining int)

	mu        sync.Mutex
	remaining int
	running   bool
	epoch     uint64
	stop      chan struct{}
}

func New(c Config) *Countdown {
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = NewTicker
	}

	return &Countdown{
		newTicker: c.NewTickerFunc,
		onTick:    c.OnTick,
	}
}

// Start resets the countdown to seconds and begins ticking, restarting it if it was running.
// onExpire is called once, on the countdown goroutine, when the remaining time reaches zero,
// unless Stop or Start is called first.
func (c *Countdown) Start(seconds int, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	c.epoch++
	c.remaining = max(seconds, 0)
	c.running = true
	c.stop = make(chan struct{})

	go c.run(c.epoch, c.newTicker(Resolution), c.stop, onExpire)
}

// Stop halts the countdown. It is safe to call at any time and more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.epoch++
}

func (c *Countdown) stopLocked() {
	if !c.running {
		return
	}

	close(c.stop)
	c.running = false
}

// Remaining returns the seconds left. It keeps its last value after Stop.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remaining
}

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

func (c *Countdown) run(epoch uint64, t Ticker, stop <-chan struct{}, onExpire func()) {
	defer t.Stop()

	for {
		select {
		case <-stop:
			return

		case <-t.C():
			remaining, expired, ok := c.tick(epoch)
			if !ok {
				return
			}

			if c.onTick != nil {
				c.onTick(remaining)
			}

			if expired {
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

// tick consumes one second. ok is false when the tick belongs to a countdown that was
// stopped or restarted in the meantime.
func (c *Countdown) tick(epoch uint64) (remaining int, expired, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.epoch != epoch {
		return 0, false, false
	}

	c.remaining--
	if c.remaining > 0 {
		return c.remaining, false, true
	}

	// The goroutine exits on its own after expiry, so the stop channel is left open.
	c.remaining = 0
	c.running = false
	return 0, true, true
}
