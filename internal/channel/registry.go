package channel

import (
	"fmt"
	"sync"
)

// Registry holds the set of live channel adapters, keyed by channel ID.
// The router consults it to resolve reply targets and to enumerate broadcast
// destinations.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds a channel under its configured ID.
// Returns ErrDuplicateChannel if the ID is already taken.
func (r *Registry) Register(ch Channel) error {
	id := ch.Config().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, id)
	}
	r.channels[id] = ch
	r.order = append(r.order, id)
	return nil
}

// Get returns the channel registered under id, or false if none.
func (r *Registry) Get(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all registered channels in registration order.
func (r *Registry) List() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Channel, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.channels[id])
	}
	return result
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
