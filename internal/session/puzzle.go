package session

import (
	"sync"
	"time"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/timer"
)

type PuzzleConfig struct {
	ID            string
	Username      string
	NewTickerFunc timer.NewTickerFunc
	Now           func() time.Time
	NewID         func() string
	OnChange      func(PuzzleSnapshot)
	OnComplete    func(domain.PuzzleResult)
}

// Puzzle runs one puzzle attempt. A correct submission and the time limit race under the same
// lock; the first to arrive completes the attempt.
type Puzzle struct {
	id         string
	username   string
	now        func() time.Time
	newID      func() string
	onChange   func(PuzzleSnapshot)
	onComplete func(domain.PuzzleResult)
	countdown  *timer.Countdown
	subs       *broadcaster[PuzzleSnapshot]

	mu      sync.Mutex
	state   puzzleState
	epoch   uint64
	version uint64
	result  *domain.PuzzleResult
}

func NewPuzzle(c PuzzleConfig) *Puzzle {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = newID
	}

	p := &Puzzle{
		id:         c.ID,
		username:   c.Username,
		now:        c.Now,
		newID:      c.NewID,
		onChange:   c.OnChange,
		onComplete: c.OnComplete,
		subs:       newBroadcaster[PuzzleSnapshot](),
	}
	p.countdown = timer.New(timer.Config{
		NewTickerFunc: c.NewTickerFunc,
		OnTick:        func(int) { p.subs.publish(p.Snapshot()) },
	})

	return p
}

func (p *Puzzle) ID() string       { return p.id }
func (p *Puzzle) Username() string { return p.username }

// Start begins a fresh attempt. The countdown only runs when the puzzle has a time limit.
func (p *Puzzle) Start(def *domain.PuzzleDefinition) (PuzzleSnapshot, error) {
	return p.apply(func() (bool, error) {
		st, err := startPuzzle(def, p.now())
		if err != nil {
			return false, err
		}

		p.stopTimerLocked()
		p.state = st
		p.result = nil

		if def.TimeLimit > 0 {
			epoch := p.epoch
			p.countdown.Start(def.TimeLimit*60, func() { p.expire(epoch) })
		}
		return true, nil
	})
}

// RequestHint reveals the next hint in order. ok is false when every hint was already shown.
func (p *Puzzle) RequestHint() (hint string, ok bool, snap PuzzleSnapshot) {
	snap, _ = p.apply(func() (bool, error) {
		var st puzzleState
		st, hint, ok = requestHint(p.state)
		p.state = st
		return ok, nil
	})
	return hint, ok, snap
}

// UpdateAnswer replaces the draft answer without counting an attempt.
func (p *Puzzle) UpdateAnswer(text string) PuzzleSnapshot {
	snap, _ := p.apply(func() (bool, error) {
		if p.state.state != PuzzleInProgress {
			return false, nil
		}
		p.state = updateAnswer(p.state, text)
		return true, nil
	})
	return snap
}

// SubmitAnswer counts an attempt. A wrong answer clears the draft and keeps the clock running.
func (p *Puzzle) SubmitAnswer(text string) PuzzleSnapshot {
	snap, _ := p.apply(func() (bool, error) {
		st, changed := submitAnswer(p.state, text, p.now())
		if !changed {
			return false, nil
		}

		p.state = st
		if st.state == PuzzleCompleted {
			p.completeLocked()
		}
		return true, nil
	})
	return snap
}

// Reset discards the attempt without producing a result.
func (p *Puzzle) Reset() PuzzleSnapshot {
	snap, _ := p.apply(func() (bool, error) {
		p.stopTimerLocked()
		p.state = puzzleState{}
		p.result = nil
		return true, nil
	})
	return snap
}

// Close stops the countdown and closes every subscription. The state is left as is.
func (p *Puzzle) Close() {
	p.mu.Lock()
	p.stopTimerLocked()
	p.mu.Unlock()

	p.subs.close()
}

func (p *Puzzle) Snapshot() PuzzleSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshotLocked()
}

func (p *Puzzle) Subscribe() (<-chan PuzzleSnapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.subs.subscribe(p.snapshotLocked())
}

func (p *Puzzle) expire(epoch uint64) {
	_, _ = p.apply(func() (bool, error) {
		if epoch != p.epoch {
			return false, nil
		}

		st, changed := expirePuzzle(p.state, p.now())
		if !changed {
			return false, nil
		}

		p.state = st
		p.completeLocked()
		return true, nil
	})
}

func (p *Puzzle) completeLocked() {
	p.stopTimerLocked()

	r := p.state.result()
	r.ID = p.newID()
	r.SessionID = p.id
	r.Username = p.username
	p.result = &r
}

func (p *Puzzle) stopTimerLocked() {
	p.epoch++
	p.countdown.Stop()
}

func (p *Puzzle) snapshotLocked() PuzzleSnapshot {
	remaining := 0
	if p.state.puzzle != nil && p.state.puzzle.TimeLimit > 0 {
		remaining = p.countdown.Remaining()
	}
	snap := puzzleSnapshot(p.id, p.username, p.state, remaining, p.result)
	snap.Version = p.version
	return snap
}

func (p *Puzzle) apply(fn func() (changed bool, err error)) (PuzzleSnapshot, error) {
	p.mu.Lock()
	hadResult := p.result != nil
	changed, err := fn()
	if changed {
		p.version++
	}
	snap := p.snapshotLocked()
	var completed *domain.PuzzleResult
	if !hadResult && p.result != nil {
		r := *p.result
		completed = &r
	}
	p.mu.Unlock()

	if err != nil {
		return snap, err
	}

	if changed {
		p.subs.publish(snap)
		if p.onChange != nil {
			p.onChange(snap)
		}
	}
	if completed != nil && p.onComplete != nil {
		p.onComplete(*completed)
	}

	return snap, nil
}
