// Package discord implements the Discord channel for convobridge: realtime
// inbound over the gateway, outbound over the REST API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/convobridge/convobridge/internal/admin"
	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/core"
	gateway "github.com/convobridge/convobridge/internal/discord"
	"github.com/convobridge/convobridge/pkg/message"
)

func init() {
	core.RegisterModule(&Discord{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Discord)(nil)
	_ core.Configurable = (*Discord)(nil)
	_ core.Provisioner  = (*Discord)(nil)
	_ core.Validator    = (*Discord)(nil)
	_ core.Starter      = (*Discord)(nil)
	_ core.Stopper      = (*Discord)(nil)
)

// Discord implements the Discord channel module.
type Discord struct {
	config  Config
	logger  *slog.Logger
	client  *Client
	gw      *gateway.Gateway
	tracker *channel.StatusTracker
	botUser *User
	metrics *admin.Metrics

	// transport overrides the gateway transport when set, for tests.
	transport gateway.Transport

	mu            sync.Mutex
	handlers      map[int]channel.Handler
	nextHandlerID int
	resumeTried   bool
}

// ModuleInfo implements core.Module.
func (d *Discord) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.discord",
		New: func() core.Module { return &Discord{} },
	}
}

// Configure implements core.Configurable.
func (d *Discord) Configure(node *yaml.Node) error {
	if err := node.Decode(&d.config); err != nil {
		return fmt.Errorf("discord: decode config: %w", err)
	}
	d.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (d *Discord) Provision(ctx *core.AppContext) error {
	d.logger = ctx.Logger
	d.client = NewClient(d.config.Token, d.config.APIURL, d.config.Timeout)
	d.tracker = channel.NewStatusTracker()
	d.handlers = make(map[int]channel.Handler)

	if svc, ok := ctx.Service("channel.registry"); ok {
		if reg, ok := svc.(*channel.Registry); ok {
			if err := reg.Register(d); err != nil {
				return fmt.Errorf("discord: register channel: %w", err)
			}
		}
	}
	if svc, ok := ctx.Service("metrics"); ok {
		d.metrics, _ = svc.(*admin.Metrics)
	}
	return nil
}

// Validate implements core.Validator.
func (d *Discord) Validate() error {
	return d.config.validate()
}

// Start implements core.Starter. It validates the bot token, then opens the
// gateway connection.
func (d *Discord) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	user, err := d.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("discord: authenticate: %w", err)
	}
	d.botUser = user
	d.logger.Info("discord bot authenticated",
		"id", user.ID,
		"username", user.Username)

	return d.Connect(ctx)
}

// Stop implements core.Stopper.
func (d *Discord) Stop(ctx context.Context) error {
	return d.Disconnect(ctx)
}

// Config implements channel.Channel.
func (d *Discord) Config() channel.Config {
	return channel.Config{
		ID:             string(d.ModuleInfo().ID),
		Platform:       message.PlatformDiscord,
		TokenReference: "modules.channel.discord.token",
		Enabled:        d.config.Enabled == nil || *d.config.Enabled,
	}
}

// Status implements channel.Channel.
func (d *Discord) Status() channel.Status {
	return d.tracker.Status()
}

// Connect implements channel.Channel. Idempotent while a gateway connection
// is open.
func (d *Discord) Connect(ctx context.Context) error {
	d.mu.Lock()
	if d.gw == nil {
		gw, err := gateway.NewGateway(gateway.Options{
			Token:     d.config.Token,
			Intents:   d.config.Intents,
			URL:       d.config.GatewayURL,
			Transport: d.transport,
			Logger:    d.logger,
		})
		if err != nil {
			d.mu.Unlock()
			return err
		}
		d.gw = gw
		gw.OnReady(d.handleReady)
		gw.OnMessageCreate(d.handleMessageCreate)
		gw.OnDisconnect(d.handleDisconnect)
	}
	gw := d.gw
	d.mu.Unlock()

	d.tracker.SetState(channel.StateConnecting)
	if err := gw.Connect(ctx); err != nil {
		d.tracker.SetError(err)
		return err
	}
	return nil
}

// Disconnect implements channel.Channel. Idempotent.
func (d *Discord) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	gw := d.gw
	d.mu.Unlock()

	if gw != nil {
		if err := gw.Disconnect(ctx); err != nil {
			return err
		}
	}
	d.tracker.SetState(channel.StateDisconnected)
	return nil
}

// Send implements channel.Channel. Discord messages go out over REST;
// attachment URLs are appended to the text body.
func (d *Discord) Send(ctx context.Context, out message.Outbound) error {
	if d.tracker.Status().State != channel.StateConnected {
		return channel.ErrNotConnected
	}

	content := out.Text
	if len(out.Attachments) > 0 {
		var urls []string
		for _, a := range out.Attachments {
			urls = append(urls, a.URL)
		}
		if content != "" {
			content += "\n"
		}
		content += strings.Join(urls, "\n")
	}

	if _, err := d.client.CreateMessage(ctx, out.ChannelID, content); err != nil {
		return err
	}
	return nil
}

// OnMessage implements channel.Channel.
func (d *Discord) OnMessage(fn channel.Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextHandlerID
	d.nextHandlerID++
	d.handlers[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, id)
	}
}

func (d *Discord) handleReady(ev gateway.ReadyEvent) {
	d.mu.Lock()
	d.resumeTried = false
	d.mu.Unlock()

	d.tracker.SetState(channel.StateConnected)
	d.logger.Info("discord gateway ready", "session_id", ev.SessionID)
}

func (d *Discord) handleMessageCreate(raw json.RawMessage) {
	msg, err := convertInbound(raw)
	if err != nil {
		d.logger.Debug("dropping unparseable discord message", "error", err)
		return
	}

	// Never loop the bot's own output back in; other bots only when allowed.
	if d.botUser != nil && msg.Sender.ID == d.botUser.ID {
		return
	}
	if msg.Sender.IsBot && !d.config.AllowBots {
		return
	}

	d.mu.Lock()
	handlers := make([]channel.Handler, 0, len(d.handlers))
	for _, fn := range d.handlers {
		handlers = append(handlers, fn)
	}
	d.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

// handleDisconnect reacts to an unexpected gateway drop with at most one
// resume attempt per established session. A second drop before the next
// READY leaves the channel in the error state for the operator (or an outer
// retry policy) to act on.
func (d *Discord) handleDisconnect(ev gateway.DisconnectEvent) {
	if d.metrics != nil {
		d.metrics.GatewayDisconnects.Inc()
	}

	d.mu.Lock()
	gw := d.gw
	alreadyTried := d.resumeTried
	d.resumeTried = true
	d.mu.Unlock()

	if alreadyTried || gw == nil {
		d.tracker.SetError(fmt.Errorf("discord: gateway dropped (code %d): %s", ev.Code, ev.Reason))
		return
	}

	d.tracker.SetState(channel.StateReconnecting)
	d.logger.Warn("discord gateway dropped, attempting resume",
		"code", ev.Code,
		"reason", ev.Reason)

	if sid := gw.SessionID(); sid != "" {
		if seq, ok := gw.Sequence(); ok && (d.config.Resume == nil || *d.config.Resume) {
			gw.PrepareResume(sid, seq)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()
	if err := gw.Connect(ctx); err != nil {
		d.tracker.SetError(err)
	}
}
