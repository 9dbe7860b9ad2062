package message

// AgentResponse is an outbound reply produced by the agent layer, addressed
// to a conversation rather than to a platform channel. The router resolves
// the actual destination.
type AgentResponse struct {
	ConversationID     string         `json:"conversation_id"`
	Text               string         `json:"text"`
	AssistantMessageID string         `json:"assistant_message_id,omitempty"`
	Attachments        []Attachment   `json:"attachments,omitempty"`
	Formatting         string         `json:"formatting,omitempty"`
	Voice              *Voice         `json:"voice,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Outbound is a single platform-ready send: one chunk of formatted text plus
// any pass-through payloads, addressed to a concrete platform channel.
type Outbound struct {
	ChannelID   string       `json:"channel_id"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Voice       *Voice       `json:"voice,omitempty"`
}
