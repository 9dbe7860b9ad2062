package discord

import "encoding/json"

// DefaultGatewayURL is the Discord realtime endpoint (JSON encoding, API v10).
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opResume         = 6
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Gateway intents.
const (
	IntentGuildMessages  = 1 << 9
	IntentDirectMessages = 1 << 12
	IntentMessageContent = 1 << 15

	// DefaultIntents covers guild messages, direct messages, and message
	// content.
	DefaultIntents = IntentGuildMessages | IntentDirectMessages | IntentMessageContent
)

// Dispatch event names consumed by the gateway.
const (
	eventReady         = "READY"
	eventMessageCreate = "MESSAGE_CREATE"
)

// payload is the envelope of every gateway frame.
type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval float64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

type readyData struct {
	SessionID string `json:"session_id"`
}

// heartbeatPayload echoes the last seen sequence, or null before any
// sequenced payload has arrived.
type heartbeatPayload struct {
	Op int    `json:"op"`
	D  *int64 `json:"d"`
}
