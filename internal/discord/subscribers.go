package discord

import "sync"

// subscribers is an ordered handler list. Handlers are invoked in
// subscription order; notify runs them synchronously so one event finishes
// before the next begins.
type subscribers[T any] struct {
	mu      sync.Mutex
	entries []subscriberEntry[T]
	nextID  int
}

type subscriberEntry[T any] struct {
	id int
	fn func(T)
}

func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, subscriberEntry[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				return
			}
		}
	}
}

func (s *subscribers[T]) notify(ev T) {
	s.mu.Lock()
	fns := make([]func(T), len(s.entries))
	for i, e := range s.entries {
		fns[i] = e.fn
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
