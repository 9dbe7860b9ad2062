package conversation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound indicates the conversation does not exist.
var ErrNotFound = errors.New("conversation: not found")

// MemStore is a concurrency-safe, in-memory Store. It backs tests and the
// terminal-only mode; production deployments plug in a durable Store.
// The now function is injectable for deterministic tests.
type MemStore struct {
	mu            sync.RWMutex
	conversations map[string]*memConversation
	now           func() time.Time
}

type memConversation struct {
	title    string
	messages []Message
}

// NewMemStore creates an empty in-memory conversation store.
func NewMemStore() *MemStore {
	return &MemStore{
		conversations: make(map[string]*memConversation),
		now:           time.Now,
	}
}

// Create implements Store.
func (s *MemStore) Create(_ context.Context, opts CreateOptions) (Conversation, error) {
	id, err := generateID("conv")
	if err != nil {
		return Conversation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[id] = &memConversation{title: opts.Title}
	return Conversation{ID: id, Title: opts.Title}, nil
}

// AddMessage implements Store.
func (s *MemStore) AddMessage(_ context.Context, conversationID string, msg NewMessage) (Message, error) {
	id, err := generateID("msg")
	if err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	stored := Message{
		ID:        id,
		Role:      msg.Role,
		Content:   msg.Content,
		Status:    msg.Status,
		CreatedAt: s.now(),
		Metadata:  msg.Metadata,
	}
	conv.messages = append(conv.messages, stored)
	return stored, nil
}

// History implements Store. Messages are returned oldest first; when limit
// is positive only the most recent limit entries are included.
func (s *MemStore) History(_ context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	msgs := conv.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	return cp, nil
}

// Len returns the number of messages in the conversation, or 0 if it does
// not exist.
func (s *MemStore) Len(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return 0
	}
	return len(conv.messages)
}

// generateID produces a prefixed hex string from 8 random bytes.
func generateID(prefix string) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("conversation: crypto/rand unavailable: %w", err)
	}
	return prefix + "-" + hex.EncodeToString(buf[:]), nil
}
