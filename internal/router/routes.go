package router

import (
	"context"
	"sync"
	"time"

	"github.com/convobridge/convobridge/pkg/message"
)

// Route is the per-conversation reply context recorded on inbound delivery:
// where the message came from and where replies should go.
type Route struct {
	Source        message.ChannelSource
	DestinationID string
	UpdatedAt     time.Time
}

// RouteStore persists reply-routing state. The memory implementation backs a
// single process; a shared store can replace it for multi-instance
// deployment.
type RouteStore interface {
	// SetConversationRoute records the route context for a conversation.
	SetConversationRoute(ctx context.Context, conversationID string, route Route) error

	// ConversationRoute returns the recorded route for a conversation.
	ConversationRoute(ctx context.Context, conversationID string) (Route, bool, error)

	// SetChannelDestination records the last-known destination (platform chat
	// or channel id) for a channel adapter.
	SetChannelDestination(ctx context.Context, channelID, destinationID string) error

	// ChannelDestination returns the last-known destination for a channel
	// adapter.
	ChannelDestination(ctx context.Context, channelID string) (string, bool, error)

	// Prune drops entries not updated since the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryRouteStore is the in-process RouteStore.
type MemoryRouteStore struct {
	mu           sync.RWMutex
	routes       map[string]Route
	destinations map[string]destinationEntry

	now func() time.Time
}

type destinationEntry struct {
	id        string
	updatedAt time.Time
}

var _ RouteStore = (*MemoryRouteStore)(nil)

// NewMemoryRouteStore creates an empty MemoryRouteStore.
func NewMemoryRouteStore() *MemoryRouteStore {
	return &MemoryRouteStore{
		routes:       make(map[string]Route),
		destinations: make(map[string]destinationEntry),
		now:          time.Now,
	}
}

// SetConversationRoute implements RouteStore.
func (s *MemoryRouteStore) SetConversationRoute(_ context.Context, conversationID string, route Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	route.UpdatedAt = s.now()
	s.routes[conversationID] = route
	return nil
}

// ConversationRoute implements RouteStore.
func (s *MemoryRouteStore) ConversationRoute(_ context.Context, conversationID string) (Route, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	route, ok := s.routes[conversationID]
	return route, ok, nil
}

// SetChannelDestination implements RouteStore.
func (s *MemoryRouteStore) SetChannelDestination(_ context.Context, channelID, destinationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations[channelID] = destinationEntry{id: destinationID, updatedAt: s.now()}
	return nil
}

// ChannelDestination implements RouteStore.
func (s *MemoryRouteStore) ChannelDestination(_ context.Context, channelID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.destinations[channelID]
	return entry.id, ok, nil
}

// Prune implements RouteStore.
func (s *MemoryRouteStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, route := range s.routes {
		if route.UpdatedAt.Before(cutoff) {
			delete(s.routes, id)
			removed++
		}
	}
	for id, entry := range s.destinations {
		if entry.updatedAt.Before(cutoff) {
			delete(s.destinations, id)
			removed++
		}
	}
	return removed, nil
}
