package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/conversation"
	"github.com/convobridge/convobridge/pkg/message"
)

func newTestServer(t *testing.T) (*MCPServer, *channel.Registry, conversation.Store) {
	t.Helper()
	reg := channel.NewRegistry()
	store := conversation.NewMemStore()

	m := &MCPServer{
		config:   Config{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		channels: reg,
		store:    store,
	}
	m.config.defaults()
	m.srv = server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	m.registerTools()
	return m, reg, store
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestListChannels(t *testing.T) {
	t.Parallel()

	m, reg, _ := newTestServer(t)
	discord := channel.NewMockChannel("channel.discord", message.PlatformDiscord)
	terminal := channel.NewMockChannel("channel.terminal", message.PlatformTerminal)
	terminal.SetState(channel.StateDisconnected)
	reg.Register(discord)
	reg.Register(terminal)

	res, err := m.handleListChannels(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleListChannels: %v", err)
	}
	var infos []channelInfo
	if err := json.Unmarshal([]byte(resultText(t, res)), &infos); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len = %d", len(infos))
	}
	if infos[0].ID != "channel.discord" || infos[0].State != "connected" {
		t.Errorf("infos[0] = %+v", infos[0])
	}
	if infos[1].ID != "channel.terminal" || infos[1].State != "disconnected" {
		t.Errorf("infos[1] = %+v", infos[1])
	}
}

func TestConversationHistory(t *testing.T) {
	t.Parallel()

	m, _, store := newTestServer(t)
	ctx := context.Background()
	conv, err := store.Create(ctx, conversation.CreateOptions{Title: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, text := range []string{"first", "second", "third"} {
		if _, err := store.AddMessage(ctx, conv.ID, conversation.NewMessage{
			Role:    conversation.RoleUser,
			Content: text,
			Status:  conversation.StatusComplete,
		}); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	res, err := m.handleConversationHistory(ctx, callRequest(map[string]any{
		"conversation_id": conv.ID,
		"limit":           2,
	}))
	if err != nil {
		t.Fatalf("handleConversationHistory: %v", err)
	}
	var entries []historyEntry
	if err := json.Unmarshal([]byte(resultText(t, res)), &entries); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(entries) != 2 || entries[0].Content != "second" || entries[1].Content != "third" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestConversationHistory_RequiresID(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestServer(t)
	res, err := m.handleConversationHistory(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleConversationHistory: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for missing conversation_id")
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	m, reg, _ := newTestServer(t)
	mock := channel.NewMockChannel("channel.discord", message.PlatformDiscord)
	reg.Register(mock)

	res, err := m.handleSendMessage(context.Background(), callRequest(map[string]any{
		"channel":     "channel.discord",
		"destination": "chan-42",
		"text":        "hello from mcp",
	}))
	if err != nil {
		t.Fatalf("handleSendMessage: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	sent := mock.SentMessages()
	if len(sent) != 1 || sent[0].ChannelID != "chan-42" || sent[0].Text != "hello from mcp" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestSendMessage_Failures(t *testing.T) {
	t.Parallel()

	m, reg, _ := newTestServer(t)
	mock := channel.NewMockChannel("channel.discord", message.PlatformDiscord)
	mock.SetState(channel.StateDisconnected)
	reg.Register(mock)

	res, err := m.handleSendMessage(context.Background(), callRequest(map[string]any{
		"channel":     "channel.missing",
		"destination": "d",
		"text":        "x",
	}))
	if err != nil {
		t.Fatalf("handleSendMessage: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "unknown channel") {
		t.Errorf("result = %+v", res)
	}

	res, err = m.handleSendMessage(context.Background(), callRequest(map[string]any{
		"channel":     "channel.discord",
		"destination": "d",
		"text":        "x",
	}))
	if err != nil {
		t.Fatalf("handleSendMessage: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "not connected") {
		t.Errorf("result = %+v", res)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{Transport: "carrier-pigeon"}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for unsupported transport")
	}

	cfg = Config{}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		t.Errorf("validate defaults: %v", err)
	}
	if cfg.Transport != TransportHTTP || cfg.HistoryLimit != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
}
