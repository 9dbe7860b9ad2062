package bridge

import (
	"context"
	"fmt"

	"github.com/convobridge/convobridge/internal/conversation"
)

// historyScanLimit bounds how far back a cache miss searches for an earlier
// write of the same platform event.
const historyScanLimit = 200

// DedupingStore wraps a conversation store and absorbs at-least-once
// redelivery: a message carrying a channel source and channel message id is
// only written once per conversation and role. Later deliveries return the
// original message id.
type DedupingStore struct {
	inner conversation.Store
	cache DedupeCache

	// OnHit, if set, is invoked every time a redelivery is absorbed.
	OnHit func()
}

var _ conversation.Store = (*DedupingStore)(nil)

// NewDedupingStore wraps inner with dedupe bookkeeping in cache.
func NewDedupingStore(inner conversation.Store, cache DedupeCache) *DedupingStore {
	return &DedupingStore{inner: inner, cache: cache}
}

// Create implements conversation.Store.
func (s *DedupingStore) Create(ctx context.Context, opts conversation.CreateOptions) (conversation.Conversation, error) {
	return s.inner.Create(ctx, opts)
}

// History implements conversation.Store.
func (s *DedupingStore) History(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	return s.inner.History(ctx, conversationID, limit)
}

// AddMessage implements conversation.Store. Messages without a channel
// source or channel message id pass straight through.
func (s *DedupingStore) AddMessage(ctx context.Context, conversationID string, msg conversation.NewMessage) (conversation.Message, error) {
	src := msg.Metadata.ChannelSource
	channelMsgID := msg.Metadata.ChannelMessageID
	if src == nil || channelMsgID == "" {
		return s.inner.AddMessage(ctx, conversationID, msg)
	}

	key := fmt.Sprintf("%s:%s:%s:%s:%s", conversationID, msg.Role, src.Platform, src.ChannelID, channelMsgID)

	if id, ok := s.cache.Get(key); ok {
		s.hit()
		return conversation.Message{
			ID:       id,
			Role:     msg.Role,
			Content:  msg.Content,
			Status:   msg.Status,
			Metadata: msg.Metadata,
		}, nil
	}

	// Cache miss does not mean unseen: the cache is per-process, the store
	// may not be. Check recent history before writing.
	history, err := s.inner.History(ctx, conversationID, historyScanLimit)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("bridge: dedupe history scan: %w", err)
	}
	for _, m := range history {
		if m.Role != msg.Role || m.Metadata.ChannelMessageID != channelMsgID {
			continue
		}
		if m.Metadata.ChannelSource == nil || *m.Metadata.ChannelSource != *src {
			continue
		}
		s.cache.Put(key, m.ID)
		s.hit()
		return m, nil
	}

	written, err := s.inner.AddMessage(ctx, conversationID, msg)
	if err != nil {
		return conversation.Message{}, err
	}
	s.cache.Put(key, written.ID)
	return written, nil
}

func (s *DedupingStore) hit() {
	if s.OnHit != nil {
		s.OnHit()
	}
}
