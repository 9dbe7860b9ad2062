package channel

import (
	"context"
	"sync"

	"github.com/convobridge/convobridge/pkg/message"
)

// MockChannel is a test double that implements Channel. It records outbound
// sends and allows simulating inbound messages via SimulateMessage.
type MockChannel struct {
	cfg Config

	mu       sync.Mutex
	state    State
	sent     []message.Outbound
	handlers map[int]Handler
	nextID   int

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, out message.Outbound) error
}

// Compile-time interface guard.
var _ Channel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel with the given identity, starting in
// the connected state with Enabled true.
func NewMockChannel(id string, platform message.Platform) *MockChannel {
	return &MockChannel{
		cfg:      Config{ID: id, Platform: platform, Enabled: true},
		state:    StateConnected,
		handlers: make(map[int]Handler),
	}
}

// SetEnabled toggles the Enabled flag.
func (m *MockChannel) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Enabled = enabled
}

// SetState forces the reported connection state.
func (m *MockChannel) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// Config implements Channel.
func (m *MockChannel) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Status implements Channel.
func (m *MockChannel) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state}
}

// Connect implements Channel.
func (m *MockChannel) Connect(_ context.Context) error {
	m.SetState(StateConnected)
	return nil
}

// Disconnect implements Channel.
func (m *MockChannel) Disconnect(_ context.Context) error {
	m.SetState(StateDisconnected)
	return nil
}

// Send records the outbound payload. If SendFunc is set, it delegates to it.
func (m *MockChannel) Send(ctx context.Context, out message.Outbound) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, out)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, out)
	return nil
}

// OnMessage implements Channel.
func (m *MockChannel) OnMessage(fn Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.handlers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}
}

// SimulateMessage pushes an inbound message to all subscribers, tagging it
// with this channel's platform and ID when unset.
func (m *MockChannel) SimulateMessage(msg message.ChannelMessage) {
	if msg.Platform == "" {
		msg.Platform = m.cfg.Platform
	}
	if msg.ChannelID == "" {
		msg.ChannelID = m.cfg.ID
	}

	m.mu.Lock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, fn := range m.handlers {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

// SentMessages returns a copy of all outbound payloads recorded by Send.
func (m *MockChannel) SentMessages() []message.Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]message.Outbound, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// Reset clears recorded sends.
func (m *MockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
