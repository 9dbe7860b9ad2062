package bridge

import (
	"context"
	"sync"
	"time"
)

// UserLinkStore maps unified user keys to the conversation each user is
// currently attached to.
type UserLinkStore interface {
	// Bind attaches a user key to a conversation, replacing any prior
	// binding.
	Bind(ctx context.Context, userKey, conversationID string) error

	// ConversationFor returns the conversation bound to a user key.
	ConversationFor(ctx context.Context, userKey string) (string, bool, error)
}

// DedupeCache remembers which inbound platform events have already been
// written. Lookups never error.
type DedupeCache interface {
	Get(key string) (messageID string, ok bool)
	Put(key, messageID string)
}

// MemoryUserLinkStore is the in-process UserLinkStore.
type MemoryUserLinkStore struct {
	mu    sync.RWMutex
	links map[string]string
}

var _ UserLinkStore = (*MemoryUserLinkStore)(nil)

// NewMemoryUserLinkStore creates an empty MemoryUserLinkStore.
func NewMemoryUserLinkStore() *MemoryUserLinkStore {
	return &MemoryUserLinkStore{links: make(map[string]string)}
}

// Bind implements UserLinkStore.
func (s *MemoryUserLinkStore) Bind(_ context.Context, userKey, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[userKey] = conversationID
	return nil
}

// ConversationFor implements UserLinkStore.
func (s *MemoryUserLinkStore) ConversationFor(_ context.Context, userKey string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.links[userKey]
	return id, ok, nil
}

// MemoryDedupeCache is the in-process DedupeCache. Entries are stamped on
// write so stale ones can be pruned; a pruned key falls back to the history
// scan, which stays correct.
type MemoryDedupeCache struct {
	mu   sync.RWMutex
	seen map[string]dedupeEntry
	now  func() time.Time
}

type dedupeEntry struct {
	messageID string
	writtenAt time.Time
}

var _ DedupeCache = (*MemoryDedupeCache)(nil)

// NewMemoryDedupeCache creates an empty MemoryDedupeCache.
func NewMemoryDedupeCache() *MemoryDedupeCache {
	return &MemoryDedupeCache{
		seen: make(map[string]dedupeEntry),
		now:  time.Now,
	}
}

// Get implements DedupeCache.
func (c *MemoryDedupeCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.seen[key]
	return e.messageID, ok
}

// Put implements DedupeCache.
func (c *MemoryDedupeCache) Put(key, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = dedupeEntry{messageID: messageID, writtenAt: c.now()}
}

// Prune removes entries written before cutoff and returns how many were
// dropped.
func (c *MemoryDedupeCache) Prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.seen {
		if e.writtenAt.Before(cutoff) {
			delete(c.seen, key)
			removed++
		}
	}
	return removed
}
