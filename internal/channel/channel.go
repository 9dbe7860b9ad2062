// Package channel defines the capability contract every platform adapter
// implements, plus the registry the router uses to resolve and broadcast to
// adapters. It holds no routing logic of its own.
package channel

import (
	"context"
	"time"

	"github.com/convobridge/convobridge/pkg/message"
)

// State is the lifecycle state of a channel adapter's platform connection.
type State string

// Channel connection states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// Config is the static identity of a channel adapter instance.
type Config struct {
	ID       string           `json:"id" yaml:"id"`
	Platform message.Platform `json:"platform" yaml:"platform"`

	// TokenReference names where the adapter's credential lives (an env var
	// or secret-store key), never the credential itself.
	TokenReference string `json:"token_reference" yaml:"token_reference"`

	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Status is a point-in-time view of an adapter's connection.
type Status struct {
	State     State  `json:"state"`
	LastError string `json:"last_error,omitempty"`
	UptimeMs  int64  `json:"uptime_ms"`
}

// Handler receives normalized inbound messages from an adapter.
type Handler func(msg message.ChannelMessage)

// Channel is the bridge between one messaging platform and the router.
// Every concrete adapter (Discord, terminal, etc.) implements this contract.
type Channel interface {
	// Config returns the adapter's static configuration.
	Config() Config

	// Status reports the current connection state.
	Status() Status

	// Connect establishes the platform connection. Idempotent.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down. Idempotent.
	Disconnect(ctx context.Context) error

	// Send delivers one outbound payload to the platform.
	Send(ctx context.Context, out message.Outbound) error

	// OnMessage subscribes to inbound messages and returns an unsubscribe
	// function. Multiple subscribers are allowed.
	OnMessage(fn Handler) (unsubscribe func())
}

// StatusTracker is a small helper adapters embed to manage Status fields
// consistently: state transitions, last error, and uptime measured from the
// moment the channel last entered StateConnected.
type StatusTracker struct {
	state       State
	lastError   string
	connectedAt time.Time
	now         func() time.Time
}

// NewStatusTracker returns a tracker starting in StateDisconnected.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{state: StateDisconnected, now: time.Now}
}

// SetState transitions to the given state, stamping the connect time when
// entering StateConnected and clearing the last error.
func (t *StatusTracker) SetState(s State) {
	t.state = s
	if s == StateConnected {
		t.connectedAt = t.now()
		t.lastError = ""
	}
}

// SetError transitions to StateError and records the cause.
func (t *StatusTracker) SetError(err error) {
	t.state = StateError
	if err != nil {
		t.lastError = err.Error()
	}
}

// Status builds the current Status snapshot.
func (t *StatusTracker) Status() Status {
	st := Status{State: t.state, LastError: t.lastError}
	if t.state == StateConnected && !t.connectedAt.IsZero() {
		st.UptimeMs = t.now().Sub(t.connectedAt).Milliseconds()
	}
	return st
}
