// Package mcpserver exposes the bridge to MCP clients: agents can list
// channels, read conversation history, and send messages through the same
// routing layer the channels use.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/internal/conversation"
	"github.com/convobridge/convobridge/internal/core"
)

const serverName = "convobridge"
const serverVersion = "0.1.0"

func init() {
	core.RegisterModule(&MCPServer{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*MCPServer)(nil)
	_ core.Provisioner  = (*MCPServer)(nil)
	_ core.Validator    = (*MCPServer)(nil)
	_ core.Starter      = (*MCPServer)(nil)
	_ core.Stopper      = (*MCPServer)(nil)
)

// MCPServer implements the MCP server module.
type MCPServer struct {
	config   Config
	logger   *slog.Logger
	channels *channel.Registry
	store    conversation.Store

	srv  *server.MCPServer
	http *server.StreamableHTTPServer
}

// ModuleInfo implements core.Module.
func (m *MCPServer) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "mcpserver",
		New: func() core.Module { return &MCPServer{} },
	}
}

// Configure implements core.Configurable.
func (m *MCPServer) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("mcpserver: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The module needs the channel
// registry and the conversation store; both are published as services by the
// application wiring.
func (m *MCPServer) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	svc, ok := ctx.Service("channel.registry")
	if !ok {
		return fmt.Errorf("mcpserver: channel.registry service not available")
	}
	reg, ok := svc.(*channel.Registry)
	if !ok {
		return fmt.Errorf("mcpserver: channel.registry service has unexpected type %T", svc)
	}
	m.channels = reg

	svc, ok = ctx.Service("conversation.store")
	if !ok {
		return fmt.Errorf("mcpserver: conversation.store service not available")
	}
	store, ok := svc.(conversation.Store)
	if !ok {
		return fmt.Errorf("mcpserver: conversation.store service has unexpected type %T", svc)
	}
	m.store = store

	m.srv = server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
	)
	m.registerTools()
	return nil
}

// Validate implements core.Validator.
func (m *MCPServer) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. The HTTP transport serves in the background;
// stdio blocks and is only used when the process is dedicated to MCP.
func (m *MCPServer) Start() error {
	switch m.config.Transport {
	case TransportStdio:
		go func() {
			if err := server.ServeStdio(m.srv); err != nil {
				m.logger.Error("mcp stdio server stopped", "error", err)
			}
		}()
		m.logger.Info("mcp server listening on stdio")
	default:
		m.http = server.NewStreamableHTTPServer(m.srv)
		go func() {
			if err := m.http.Start(m.config.Addr); err != nil {
				m.logger.Error("mcp http server stopped", "error", err)
			}
		}()
		m.logger.Info("mcp server listening", "addr", m.config.Addr)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *MCPServer) Stop(ctx context.Context) error {
	if m.http != nil {
		return m.http.Shutdown(ctx)
	}
	return nil
}
