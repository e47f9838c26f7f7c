package session

import (
	"sync"
	"time"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/timer"
)

type QuizConfig struct {
	ID            string
	Username      string
	NewTickerFunc timer.NewTickerFunc
	Now           func() time.Time
	NewID         func() string
	// OnChange is called after every state transition, outside the session lock. Timer ticks
	// are only delivered to subscribers.
	OnChange func(QuizSnapshot)
	// OnComplete is called exactly once per completed attempt, after OnChange.
	OnComplete func(domain.QuizResult)
}

// Quiz runs one quiz attempt. User actions and timer expiry are serialised, so whichever of
// an answer and an expiry arrives first wins and the other is ignored.
type Quiz struct {
	id         string
	username   string
	now        func() time.Time
	newID      func() string
	onChange   func(QuizSnapshot)
	onComplete func(domain.QuizResult)
	countdown  *timer.Countdown
	subs       *broadcaster[QuizSnapshot]

	mu      sync.Mutex
	state   quizState
	epoch   uint64
	version uint64
	result  *domain.QuizResult
}

func NewQuiz(c QuizConfig) *Quiz {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = newID
	}

	q := &Quiz{
		id:         c.ID,
		username:   c.Username,
		now:        c.Now,
		newID:      c.NewID,
		onChange:   c.OnChange,
		onComplete: c.OnComplete,
		subs:       newBroadcaster[QuizSnapshot](),
	}
	q.countdown = timer.New(timer.Config{
		NewTickerFunc: c.NewTickerFunc,
		OnTick:        func(int) { q.subs.publish(q.Snapshot()) },
	})

	return q
}

func (q *Quiz) ID() string       { return q.id }
func (q *Quiz) Username() string { return q.username }

// Start begins a fresh attempt at def, discarding any attempt in flight.
func (q *Quiz) Start(def *domain.QuizDefinition) (QuizSnapshot, error) {
	return q.apply(func() (bool, error) {
		st, err := startQuiz(def, q.now())
		if err != nil {
			return false, err
		}

		q.state = st
		q.result = nil
		q.startTimerLocked()
		return true, nil
	})
}

// SelectAnswer locks in the answer to the current question. It is a no-op once the question
// has an answer, including the one recorded by a timeout.
func (q *Quiz) SelectAnswer(index int) (QuizSnapshot, error) {
	return q.apply(func() (bool, error) {
		if q.state.state == QuizInProgress && !q.state.answered() && index < 0 {
			return false, errors.InvalidInput("answer index %d out of range", index)
		}

		st, changed, err := recordAnswer(q.state, index, q.now())
		if err != nil || !changed {
			return false, err
		}

		q.stopTimerLocked()
		q.state = st
		return true, nil
	})
}

// Next advances past an answered question. After the last question it completes the attempt
// and the returned snapshot carries the result. Calling Next on a completed quiz does nothing.
func (q *Quiz) Next() (QuizSnapshot, error) {
	return q.apply(func() (bool, error) {
		if q.state.state == QuizCompleted {
			return false, nil
		}

		st, done, err := advance(q.state, q.now())
		if err != nil {
			return false, err
		}

		q.state = st
		if !done {
			q.startTimerLocked()
			return true, nil
		}

		q.stopTimerLocked()
		r := st.result()
		r.ID = q.newID()
		r.SessionID = q.id
		r.Username = q.username
		q.result = &r
		return true, nil
	})
}

// Reset discards the attempt without producing a result.
func (q *Quiz) Reset() QuizSnapshot {
	snap, _ := q.apply(func() (bool, error) {
		q.stopTimerLocked()
		q.state = quizState{}
		q.result = nil
		return true, nil
	})
	return snap
}

// Close stops the countdown and closes every subscription. The state is left as is.
func (q *Quiz) Close() {
	q.mu.Lock()
	q.stopTimerLocked()
	q.mu.Unlock()

	q.subs.close()
}

func (q *Quiz) Snapshot() QuizSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.snapshotLocked()
}

// Subscribe streams snapshots, starting with the current one. Snapshots are sent on every
// transition and every timer tick; a slow reader only misses intermediate ones.
func (q *Quiz) Subscribe() (<-chan QuizSnapshot, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.subs.subscribe(q.snapshotLocked())
}

func (q *Quiz) expire(epoch uint64) {
	_, _ = q.apply(func() (bool, error) {
		if epoch != q.epoch {
			return false, nil
		}

		st, changed, _ := recordAnswer(q.state, domain.NoAnswer, q.now())
		q.state = st
		return changed, nil
	})
}

func (q *Quiz) startTimerLocked() {
	q.epoch++
	epoch := q.epoch
	q.countdown.Start(q.state.question().Limit(), func() { q.expire(epoch) })
}

func (q *Quiz) stopTimerLocked() {
	q.epoch++
	q.countdown.Stop()
}

func (q *Quiz) snapshotLocked() QuizSnapshot {
	snap := quizSnapshot(q.id, q.username, q.state, q.countdown.Remaining(), q.result)
	snap.Version = q.version
	return snap
}

// apply runs fn under the session lock and then notifies observers when it changed the state.
func (q *Quiz) apply(fn func() (changed bool, err error)) (QuizSnapshot, error) {
	q.mu.Lock()
	hadResult := q.result != nil
	changed, err := fn()
	if changed {
		q.version++
	}
	snap := q.snapshotLocked()
	var completed *domain.QuizResult
	if !hadResult && q.result != nil {
		r := *q.result
		completed = &r
	}
	q.mu.Unlock()

	if err != nil {
		return snap, err
	}

	if changed {
		q.subs.publish(snap)
		if q.onChange != nil {
			q.onChange(snap)
		}
	}
	if completed != nil && q.onComplete != nil {
		q.onComplete(*completed)
	}

	return snap, nil
}
