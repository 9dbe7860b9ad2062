// Package bridge layers user-identity continuity and idempotent writes on
// top of the channel router, so one person talking from several platforms
// lands in a single conversation timeline.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/router"
	"github.com/convobridge/convobridge/pkg/message"
)

// Delegate is the inner routing layer the bridge wraps.
type Delegate interface {
	RouteInbound(ctx context.Context, msg message.ChannelMessage, source channel.Channel) (router.InboundResult, error)
	RouteOutbound(ctx context.Context, resp message.AgentResponse, source channel.Channel) error
}

// Bridge resolves a unified user key per inbound message and keeps that user
// attached to one conversation across platforms. Outbound routing is pure
// delegation.
type Bridge struct {
	inner  Delegate
	users  UserLinkStore
	logger *slog.Logger
}

var _ Delegate = (*Bridge)(nil)

// New creates a Bridge around the inner router.
func New(inner Delegate, users UserLinkStore, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		inner:  inner,
		users:  users,
		logger: logger.With("component", "bridge"),
	}
}

// UserKey derives the unified identity for a sender: the adapter-provided
// unified id when present, else "platform:senderId".
func UserKey(sender message.Sender, platform message.Platform) string {
	if sender.UnifiedID != "" {
		return sender.UnifiedID
	}
	return fmt.Sprintf("%s:%s", platform, sender.ID)
}

// RouteInbound attaches the sender's mapped conversation (when the message
// does not name one explicitly) before delegating, then (re)binds the user
// key to whatever conversation the delivery ended up in.
func (b *Bridge) RouteInbound(ctx context.Context, msg message.ChannelMessage, source channel.Channel) (router.InboundResult, error) {
	key := UserKey(msg.Sender, msg.Platform)

	if msg.ConversationID == "" {
		convID, ok, err := b.users.ConversationFor(ctx, key)
		if err != nil {
			return router.InboundResult{}, fmt.Errorf("bridge: lookup user conversation: %w", err)
		}
		if ok {
			msg.ConversationID = convID
		}
	}

	res, err := b.inner.RouteInbound(ctx, msg, source)
	if err != nil {
		return res, err
	}

	if err := b.users.Bind(ctx, key, res.ConversationID); err != nil {
		return res, fmt.Errorf("bridge: bind user conversation: %w", err)
	}

	b.logger.Debug("bound user to conversation",
		"user_key", key,
		"conversation_id", res.ConversationID)
	return res, nil
}

// RouteOutbound implements Delegate by pure delegation.
func (b *Bridge) RouteOutbound(ctx context.Context, resp message.AgentResponse, source channel.Channel) error {
	return b.inner.RouteOutbound(ctx, resp, source)
}

// BindUserConversation seeds or replaces a user-to-conversation mapping,
// e.g. for a conversation started outside any channel.
func (b *Bridge) BindUserConversation(ctx context.Context, userKey, conversationID string) error {
	return b.users.Bind(ctx, userKey, conversationID)
}

// ConversationForUser returns the conversation currently bound to a user
// key.
func (b *Bridge) ConversationForUser(ctx context.Context, userKey string) (string, bool, error) {
	return b.users.ConversationFor(ctx, userKey)
}
