package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/pkg/message"
)

func (m *MCPServer) registerTools() {
	m.srv.AddTool(mcp.NewTool("list_channels",
		mcp.WithDescription("List the configured messaging channels with their connection state."),
	), m.handleListChannels)

	m.srv.AddTool(mcp.NewTool("conversation_history",
		mcp.WithDescription("Read the most recent messages of a conversation, oldest first."),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation to read."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return."),
		),
	), m.handleConversationHistory)

	m.srv.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a text message to a platform channel."),
		mcp.WithString("channel",
			mcp.Required(),
			mcp.Description("Channel module ID, e.g. channel.discord."),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description("Platform-specific destination (chat or channel ID)."),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Message text to deliver."),
		),
	), m.handleSendMessage)
}

type channelInfo struct {
	ID        string `json:"id"`
	Platform  string `json:"platform"`
	Enabled   bool   `json:"enabled"`
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

func (m *MCPServer) handleListChannels(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var infos []channelInfo
	for _, ch := range m.channels.List() {
		cfg := ch.Config()
		st := ch.Status()
		infos = append(infos, channelInfo{
			ID:        cfg.ID,
			Platform:  string(cfg.Platform),
			Enabled:   cfg.Enabled,
			State:     string(st.State),
			LastError: st.LastError,
		})
	}
	return jsonResult(infos)
}

type historyEntry struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (m *MCPServer) handleConversationHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", m.config.HistoryLimit)

	msgs, err := m.store.History(ctx, conversationID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load history: %v", err)), nil
	}

	entries := make([]historyEntry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, historyEntry{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.Content,
			Status:    msg.Status,
			CreatedAt: msg.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return jsonResult(entries)
}

func (m *MCPServer) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channelID, err := req.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	destination, err := req.RequireString("destination")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ch, ok := m.channels.Get(channelID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown channel %q", channelID)), nil
	}
	if ch.Status().State != channel.StateConnected {
		return mcp.NewToolResultError(fmt.Sprintf("channel %q is not connected", channelID)), nil
	}

	if err := ch.Send(ctx, message.Outbound{ChannelID: destination, Text: text}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("send failed: %v", err)), nil
	}
	return mcp.NewToolResultText("message sent"), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
