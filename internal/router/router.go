// Package router translates normalized channel messages into conversation
// writes and fans agent responses back out to platform channels, tracking
// reply destinations and applying per-platform outbound formatting.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/conversation"
	"github.com/convobridge/convobridge/internal/telemetry"
	"github.com/convobridge/convobridge/pkg/message"
)

// Assistant placeholder defaults recorded before the agent produces output.
const (
	defaultProvider = "agent"
	defaultModel    = "default"
)

const titleMaxLen = 50

// InboundResult reports what an inbound delivery produced.
type InboundResult struct {
	ConversationID     string
	UserMessageID      string
	AssistantMessageID string
	Timestamp          time.Time
	Source             message.ChannelSource
}

// Options configures a Router.
type Options struct {
	Store    conversation.Store
	Registry *channel.Registry
	Routes   RouteStore
	Logger   *slog.Logger

	// Broadcast fans outbound responses to every eligible channel instead of
	// only the source channel.
	Broadcast bool

	// OnSend, if set, is invoked after each successful outbound delivery.
	OnSend func(platform message.Platform)

	Now func() time.Time
}

// Router is stateless per call; all mutable routing state lives in the
// injected RouteStore.
type Router struct {
	store     conversation.Store
	registry  *channel.Registry
	routes    RouteStore
	logger    *slog.Logger
	broadcast bool
	onSend    func(platform message.Platform)
	now       func() time.Time
	tracer    trace.Tracer
}

// New creates a Router.
func New(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Router{
		store:     opts.Store,
		registry:  opts.Registry,
		routes:    opts.Routes,
		logger:    opts.Logger.With("component", "router"),
		broadcast: opts.Broadcast,
		onSend:    opts.OnSend,
		now:       opts.Now,
		tracer:    telemetry.Tracer("router"),
	}
}

// RouteInbound writes an inbound channel message into the conversation store
// as a user message plus a pending assistant placeholder, and records where
// the reply should go.
func (r *Router) RouteInbound(ctx context.Context, msg message.ChannelMessage, source channel.Channel) (InboundResult, error) {
	ctx, span := r.tracer.Start(ctx, "route_inbound", trace.WithAttributes(
		attribute.String("platform", string(msg.Platform)),
		attribute.String("channel_id", msg.ChannelID),
	))
	defer span.End()

	content := msg.Content()
	if content == "" {
		return InboundResult{}, fmt.Errorf("%w (channel %s)", ErrNoContent, msg.ChannelID)
	}

	convID := msg.ConversationID
	if convID == "" {
		conv, err := r.store.Create(ctx, conversation.CreateOptions{
			Title: deriveTitle(content, msg.Platform),
		})
		if err != nil {
			return InboundResult{}, fmt.Errorf("router: create conversation: %w", err)
		}
		convID = conv.ID
	}

	src := &message.ChannelSource{ChannelID: msg.ChannelID, Platform: msg.Platform}

	userMsg, err := r.store.AddMessage(ctx, convID, conversation.NewMessage{
		Role:    conversation.RoleUser,
		Content: content,
		Status:  conversation.StatusComplete,
		Metadata: conversation.Metadata{
			ChannelSource:        src,
			ChannelMessageID:     msg.ID,
			ChannelDestinationID: msg.ChannelID,
			SenderID:             msg.Sender.ID,
		},
	})
	if err != nil {
		return InboundResult{}, fmt.Errorf("router: write user message: %w", err)
	}

	// Reserve the agent's turn before it has produced anything.
	assistantMsg, err := r.store.AddMessage(ctx, convID, conversation.NewMessage{
		Role:   conversation.RoleAssistant,
		Status: conversation.StatusPending,
		Metadata: conversation.Metadata{
			ChannelSource:    src,
			ChannelMessageID: msg.ID,
			Provider:         defaultProvider,
			Model:            defaultModel,
		},
	})
	if err != nil {
		return InboundResult{}, fmt.Errorf("router: write assistant placeholder: %w", err)
	}

	route := Route{Source: *src, DestinationID: msg.ChannelID}
	if err := r.routes.SetConversationRoute(ctx, convID, route); err != nil {
		return InboundResult{}, fmt.Errorf("router: record route context: %w", err)
	}
	if err := r.routes.SetChannelDestination(ctx, source.Config().ID, msg.ChannelID); err != nil {
		return InboundResult{}, fmt.Errorf("router: record channel destination: %w", err)
	}

	r.logger.Debug("routed inbound message",
		"conversation_id", convID,
		"platform", msg.Platform,
		"channel_id", msg.ChannelID)

	return InboundResult{
		ConversationID:     convID,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
		Timestamp:          r.now(),
		Source:             *src,
	}, nil
}

// RouteOutbound delivers an agent response back to platform channels. In
// broadcast mode every enabled, connected channel with a known destination
// receives it; otherwise only the source channel does.
func (r *Router) RouteOutbound(ctx context.Context, resp message.AgentResponse, source channel.Channel) error {
	ctx, span := r.tracer.Start(ctx, "route_outbound", trace.WithAttributes(
		attribute.String("conversation_id", resp.ConversationID),
		attribute.Bool("broadcast", r.broadcast),
	))
	defer span.End()

	dest, err := r.resolveDestination(ctx, resp.ConversationID, source.Config().ID)
	if err != nil {
		return err
	}

	if !r.broadcast {
		return r.sendTo(ctx, source, dest, resp)
	}

	var wg sync.WaitGroup
	for _, ch := range r.registry.List() {
		cfg := ch.Config()
		if !cfg.Enabled || ch.Status().State != channel.StateConnected {
			continue
		}
		chDest, ok, err := r.routes.ChannelDestination(ctx, cfg.ID)
		if err != nil || !ok {
			continue
		}

		wg.Add(1)
		go func(ch channel.Channel, dest string) {
			defer wg.Done()
			// Broadcast failures stay isolated per channel.
			if err := r.sendTo(ctx, ch, dest, resp); err != nil {
				r.logger.Warn("broadcast send failed",
					"channel_id", ch.Config().ID,
					"error", err)
			}
		}(ch, chDest)
	}
	wg.Wait()
	return nil
}

func (r *Router) resolveDestination(ctx context.Context, conversationID, channelID string) (string, error) {
	if dest, ok, err := r.routes.ChannelDestination(ctx, channelID); err != nil {
		return "", fmt.Errorf("router: lookup channel destination: %w", err)
	} else if ok {
		return dest, nil
	}

	if route, ok, err := r.routes.ConversationRoute(ctx, conversationID); err != nil {
		return "", fmt.Errorf("router: lookup route context: %w", err)
	} else if ok && route.DestinationID != "" {
		return route.DestinationID, nil
	}

	return "", fmt.Errorf("%w for conversation %s", ErrNoDestination, conversationID)
}

// sendTo shapes the response for the channel's platform and sends it. Chunks
// go out strictly in order; a chunk failure stops the remainder.
func (r *Router) sendTo(ctx context.Context, ch channel.Channel, dest string, resp message.AgentResponse) error {
	switch ch.Config().Platform {
	case message.PlatformTelegram:
		chunks := SplitText(FormatTelegram(resp.Text), TelegramMaxMessageLength)
		for i, chunk := range chunks {
			out := message.Outbound{ChannelID: dest, Text: chunk}
			if i == 0 {
				out.Attachments = resp.Attachments
				out.Voice = resp.Voice
			}
			if err := ch.Send(ctx, out); err != nil {
				return fmt.Errorf("router: send chunk %d/%d to %s: %w", i+1, len(chunks), ch.Config().ID, err)
			}
		}
		r.sent(message.PlatformTelegram)
		return nil
	default:
		out := message.Outbound{
			ChannelID:   dest,
			Text:        FormatDiscord(resp.Text),
			Attachments: resp.Attachments,
			Voice:       resp.Voice,
		}
		if err := ch.Send(ctx, out); err != nil {
			return fmt.Errorf("router: send to %s: %w", ch.Config().ID, err)
		}
		r.sent(ch.Config().Platform)
		return nil
	}
}

func (r *Router) sent(platform message.Platform) {
	if r.onSend != nil {
		r.onSend(platform)
	}
}

func deriveTitle(content string, platform message.Platform) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Sprintf("Message from %s", platform)
	}
	runes := []rune(trimmed)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen])
	}
	return trimmed
}
