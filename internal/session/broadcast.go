package session

import "sync"

const subscriberBuffer = 8

// broadcaster fans snapshots out to subscribers. A slow subscriber loses its oldest pending
// snapshot instead of blocking the session.
type broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[chan T]struct{})}
}

// subscribe registers a subscriber and delivers initial to it first.
func (b *broadcaster[T]) subscribe(initial T) (<-chan T, func()) {
	ch := make(chan T, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch <- initial
		close(ch)
		return ch, func() {}
	}

	b.subs[ch] = struct{}{}
	ch <- initial

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// close delivers nothing more and closes every subscriber channel.
func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
