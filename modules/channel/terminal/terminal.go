// Package terminal implements a local console channel: lines typed at an
// interactive prompt become inbound messages, and outbound messages print to
// the same console. Useful for development and for driving the bridge without
// any platform credentials.
package terminal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/core"
	"github.com/convobridge/convobridge/pkg/message"
)

func init() {
	core.RegisterModule(&Terminal{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Terminal)(nil)
	_ core.Configurable = (*Terminal)(nil)
	_ core.Provisioner  = (*Terminal)(nil)
	_ core.Validator    = (*Terminal)(nil)
	_ core.Starter      = (*Terminal)(nil)
	_ core.Stopper      = (*Terminal)(nil)
)

// Terminal implements the console channel module.
type Terminal struct {
	config  Config
	logger  *slog.Logger
	tracker *channel.StatusTracker
	out     io.Writer

	// newReader builds the line source; overridden in tests.
	newReader func(cfg Config) (lineReader, error)

	mu            sync.Mutex
	reader        lineReader
	handlers      map[int]channel.Handler
	nextHandlerID int
}

// ModuleInfo implements core.Module.
func (t *Terminal) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.terminal",
		New: func() core.Module { return &Terminal{} },
	}
}

// Configure implements core.Configurable.
func (t *Terminal) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("terminal: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Terminal) Provision(ctx *core.AppContext) error {
	t.logger = ctx.Logger
	t.tracker = channel.NewStatusTracker()
	t.handlers = make(map[int]channel.Handler)
	if t.out == nil {
		t.out = os.Stdout
	}
	if t.newReader == nil {
		t.newReader = newReadlineReader
	}

	if svc, ok := ctx.Service("channel.registry"); ok {
		if reg, ok := svc.(*channel.Registry); ok {
			if err := reg.Register(t); err != nil {
				return fmt.Errorf("terminal: register channel: %w", err)
			}
		}
	}
	return nil
}

// Validate implements core.Validator.
func (t *Terminal) Validate() error {
	return t.config.validate()
}

// Start implements core.Starter.
func (t *Terminal) Start() error {
	return t.Connect(context.Background())
}

// Stop implements core.Stopper.
func (t *Terminal) Stop(ctx context.Context) error {
	return t.Disconnect(ctx)
}

// Config implements channel.Channel.
func (t *Terminal) Config() channel.Config {
	return channel.Config{
		ID:       string(t.ModuleInfo().ID),
		Platform: message.PlatformTerminal,
		Enabled:  t.config.Enabled == nil || *t.config.Enabled,
	}
}

// Status implements channel.Channel.
func (t *Terminal) Status() channel.Status {
	return t.tracker.Status()
}

// Connect implements channel.Channel. It opens the prompt and starts the
// read loop. Idempotent while the prompt is open.
func (t *Terminal) Connect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reader != nil {
		return nil
	}
	reader, err := t.newReader(t.config)
	if err != nil {
		t.tracker.SetError(err)
		return fmt.Errorf("terminal: open prompt: %w", err)
	}
	t.reader = reader
	t.tracker.SetState(channel.StateConnected)

	go t.readLoop(reader)
	return nil
}

// Disconnect implements channel.Channel. Idempotent.
func (t *Terminal) Disconnect(_ context.Context) error {
	t.mu.Lock()
	reader := t.reader
	t.reader = nil
	t.mu.Unlock()

	t.tracker.SetState(channel.StateDisconnected)
	if reader != nil {
		return reader.Close()
	}
	return nil
}

// Send implements channel.Channel by printing to the console.
func (t *Terminal) Send(_ context.Context, out message.Outbound) error {
	if t.tracker.Status().State != channel.StateConnected {
		return channel.ErrNotConnected
	}
	if _, err := fmt.Fprintln(t.out, out.Text); err != nil {
		return fmt.Errorf("terminal: write output: %w", err)
	}
	for _, a := range out.Attachments {
		fmt.Fprintf(t.out, "[attachment] %s\n", a.URL)
	}
	return nil
}

// OnMessage implements channel.Channel.
func (t *Terminal) OnMessage(fn channel.Handler) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextHandlerID
	t.nextHandlerID++
	t.handlers[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers, id)
	}
}

func (t *Terminal) readLoop(reader lineReader) {
	for {
		line, err := reader.ReadLine()
		if err != nil {
			t.mu.Lock()
			stale := t.reader != reader
			if !stale {
				t.reader = nil
			}
			t.mu.Unlock()
			if !stale {
				t.tracker.SetState(channel.StateDisconnected)
				if err != io.EOF {
					t.logger.Warn("terminal prompt closed", "error", err)
				}
			}
			return
		}
		if line == "" {
			continue
		}
		t.dispatch(line)
	}
}

func (t *Terminal) dispatch(line string) {
	msg := message.ChannelMessage{
		ID:        newMessageID(),
		Platform:  message.PlatformTerminal,
		ChannelID: t.config.ChannelID,
		Sender: message.Sender{
			ID:       t.config.User,
			Username: t.config.User,
		},
		Timestamp: time.Now(),
		Text:      line,
	}

	t.mu.Lock()
	handlers := make([]channel.Handler, 0, len(t.handlers))
	for _, fn := range t.handlers {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

func newMessageID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("term-%d", time.Now().UnixNano())
	}
	return "term-" + hex.EncodeToString(buf[:])
}
