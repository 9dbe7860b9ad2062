package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/convobridge/convobridge/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry, and validates the
// top-level sections.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	switch cfg.State.Backend {
	case "", "memory":
	case "sqlite":
		if cfg.State.Path == "" {
			errs = append(errs, errors.New("config: state.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown state backend %q (supported: memory, sqlite)", cfg.State.Backend))
	}

	if cfg.Admin.Enabled && cfg.Admin.Addr == "" {
		errs = append(errs, errors.New("config: admin.addr is required when admin.enabled is true"))
	}

	if cfg.Maintenance.RouteTTL != "" {
		if _, err := time.ParseDuration(cfg.Maintenance.RouteTTL); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid maintenance.route_ttl: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RouteTTLDuration returns the parsed maintenance TTL, defaulting to 24h.
func (c MaintenanceConfig) RouteTTLDuration() time.Duration {
	if c.RouteTTL == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(c.RouteTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
