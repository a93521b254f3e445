package timer

import "sync"

// Listener receives timer events.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener

	// mu is held for the whole of each call to fn, so removal waits for an
	// in-flight call to return.
	mu     sync.Mutex
	active bool
}

func (s *subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.fn(ev)
	}
}

func (s *subscription) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// bus fans events out to listeners in emission order.
//
// Events are queued by publish while the engine holds its state lock and are
// delivered by flush once that lock is released, so a listener may call back
// into the engine. Only one goroutine delivers at a time; a flush that finds
// delivery already in progress leaves its events to the active deliverer,
// which keeps the stream ordered for every subscriber.
//
// The function returned by subscribe blocks until a call to the listener
// running on another goroutine has returned; after that the listener is
// never called again. A listener must not remove itself from inside its own
// call.
type bus struct {
	mu      sync.Mutex
	subs    []*subscription
	nextID  uint64
	pending []Event

	deliverMu sync.Mutex
}

func (b *bus) subscribe(fn Listener) func() {
	sub := &subscription{fn: fn, active: true}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.deactivate()
			b.remove(sub.id)
		})
	}
}

func (b *bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	b.mu.Unlock()
}

func (b *bus) drain() ([]Event, []*subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.pending
	b.pending = nil
	return events, append([]*subscription(nil), b.subs...)
}

func (b *bus) hasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) > 0
}

func (b *bus) flush() {
	for {
		if !b.deliverMu.TryLock() {
			return
		}
		for {
			events, subs := b.drain()
			if len(events) == 0 {
				break
			}
			for _, ev := range events {
				for _, s := range subs {
					s.deliver(ev)
				}
			}
		}
		b.deliverMu.Unlock()

		if !b.hasPending() {
			return
		}
	}
}

func (b *bus) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
