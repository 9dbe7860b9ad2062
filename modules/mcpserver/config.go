package mcpserver

import "fmt"

// Transport modes for the MCP server.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds the MCP server module configuration.
type Config struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
	// HistoryLimit caps how many messages conversation_history returns when
	// the caller does not ask for a specific count.
	HistoryLimit int `yaml:"history_limit"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8765"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
}

// validate checks configuration constraints.
func (c *Config) validate() error {
	switch c.Transport {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("mcpserver: unsupported transport %q", c.Transport)
	}
	if c.Transport == TransportHTTP && c.Addr == "" {
		return fmt.Errorf("mcpserver: addr is required for http transport")
	}
	return nil
}
