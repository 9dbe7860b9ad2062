// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for convobridge.
package config

import (
	"gopkg.in/yaml.v3"

	"github.com/convobridge/convobridge/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.discord").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Routing controls the router/bridge layer.
	Routing RoutingConfig `yaml:"routing,omitempty"`

	// State selects the backing store for conversations and routes.
	State StateConfig `yaml:"state,omitempty"`

	// Admin configures the operational HTTP server.
	Admin AdminConfig `yaml:"admin,omitempty"`

	// Telemetry configures trace export.
	Telemetry telemetry.Config `yaml:"telemetry,omitempty"`

	// Maintenance configures background cleanup.
	Maintenance MaintenanceConfig `yaml:"maintenance,omitempty"`
}

// RoutingConfig controls outbound fan-out behavior.
type RoutingConfig struct {
	// Broadcast sends agent replies to every eligible channel instead of
	// only the source channel.
	Broadcast bool `yaml:"broadcast"`
}

// StateConfig selects where routing and conversation state live.
type StateConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file, used when Backend is "sqlite".
	Path string `yaml:"path"`
}

// AdminConfig configures the operational HTTP server.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MaintenanceConfig configures background cleanup jobs.
type MaintenanceConfig struct {
	// RouteTTL is how long unused routing state is kept. Zero means the
	// 24h default.
	RouteTTL string `yaml:"route_ttl"`

	// Schedule is a 5-field cron expression for the cleanup job.
	Schedule string `yaml:"schedule"`
}
