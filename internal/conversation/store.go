// Package conversation defines the conversation-store collaborator consumed
// by the router and bridge: a persisted, channel-independent message timeline
// the agent reasons over. Only the contract and an in-memory reference
// implementation live here; durable backends are provided externally.
package conversation

import (
	"context"
	"time"

	"github.com/convobridge/convobridge/pkg/message"
)

// Role discriminates who authored a conversation message.
type Role string

// Conversation message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message statuses.
const (
	// StatusPending marks an assistant placeholder reserved before the agent
	// has produced output.
	StatusPending = "pending"
	// StatusComplete marks a finished message.
	StatusComplete = "complete"
)

// Metadata is the envelope persisted with a conversation message so the
// originating platform event can be traced and replies routed back.
type Metadata struct {
	ChannelSource        *message.ChannelSource `json:"channel_source,omitempty"`
	ChannelMessageID     string                 `json:"channel_message_id,omitempty"`
	ChannelDestinationID string                 `json:"channel_destination_id,omitempty"`
	SenderID             string                 `json:"sender_id,omitempty"`
	Provider             string                 `json:"provider,omitempty"`
	Model                string                 `json:"model,omitempty"`
	Extra                map[string]any         `json:"extra,omitempty"`
}

// NewMessage is the write payload for AddMessage.
type NewMessage struct {
	Role     Role
	Content  string
	Status   string
	Metadata Metadata
}

// Message is a persisted conversation entry.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Status    string
	CreatedAt time.Time
	Metadata  Metadata
}

// CreateOptions configures a new conversation.
type CreateOptions struct {
	Title string
}

// Conversation identifies a created timeline.
type Conversation struct {
	ID    string
	Title string
}

// Store is the conversation-store collaborator. Implementations must be safe
// for concurrent use.
type Store interface {
	// Create starts a new conversation and returns its identity.
	Create(ctx context.Context, opts CreateOptions) (Conversation, error)

	// AddMessage appends a message to the conversation and returns the
	// persisted entry (with its assigned ID).
	AddMessage(ctx context.Context, conversationID string, msg NewMessage) (Message, error)

	// History returns the most recent messages in the conversation, oldest
	// first. A limit <= 0 returns everything.
	History(ctx context.Context, conversationID string, limit int) ([]Message, error)
}
