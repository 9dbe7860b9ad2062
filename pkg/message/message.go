// Package message defines the platform-agnostic data contract between
// channel adapters and the routing layer. A ChannelMessage is produced by an
// adapter from a platform-native payload and is immutable once normalized.
package message

import (
	"encoding/json"
	"time"
)

// Platform identifies a messaging platform.
type Platform string

// Supported platforms.
const (
	PlatformDiscord  Platform = "discord"
	PlatformTelegram Platform = "telegram"
	PlatformTerminal Platform = "terminal"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`

	// UnifiedID, when set by the adapter, links this sender to a known
	// cross-platform identity. The bridge falls back to "platform:id".
	UnifiedID string `json:"unified_id,omitempty"`
}

// ChannelSource attributes a conversation message to the adapter instance
// and platform it arrived through.
type ChannelSource struct {
	ChannelID string   `json:"channel_id"`
	Platform  Platform `json:"platform"`
}

// Attachment references a media payload carried alongside message text.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Voice carries an audio message and, when available, its transcript.
type Voice struct {
	URL        string  `json:"url,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ChannelMessage is a normalized inbound message from any platform.
type ChannelMessage struct {
	ID             string   `json:"id"`
	Platform       Platform `json:"platform"`
	ChannelID      string   `json:"channel_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Sender         Sender   `json:"sender"`
	Timestamp      time.Time `json:"timestamp"`

	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Formatting  string       `json:"formatting,omitempty"`
	Voice       *Voice       `json:"voice,omitempty"`

	// PlatformData carries arbitrary per-platform fields the adapter chose
	// to preserve. Opaque to the router and bridge.
	PlatformData json.RawMessage `json:"platform_data,omitempty"`
}

// Content returns the textual content of the message: the text if present,
// otherwise the voice transcript. Empty when neither exists.
func (m *ChannelMessage) Content() string {
	if m.Text != "" {
		return m.Text
	}
	if m.Voice != nil {
		return m.Voice.Transcript
	}
	return ""
}
