// Package app provides the shared entry point for the convobridge binary:
// configuration loading, store construction, module loading, and the wiring
// between channels and the routing layer.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/convobridge/convobridge/internal/admin"
	"github.com/convobridge/convobridge/internal/config"
	"github.com/convobridge/convobridge/internal/core"
	"github.com/convobridge/convobridge/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	}))

	shutdownTelemetry, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	stores, err := buildStores(cfg, dataDir)
	if err != nil {
		return err
	}
	defer stores.Close()

	metrics := admin.NewMetrics()

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	// Publish shared collaborators before modules provision, so channels can
	// self-register and the MCP server can resolve the store.
	appCtx.RegisterService("channel.registry", stores.Channels)
	appCtx.RegisterService("conversation.store", stores.Conversations)
	appCtx.RegisterService("metrics", metrics)
	appCtx.RegisterService("config.path", cfgPath)

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return err
	}

	// Wire the bridge between LoadModules and Start: subscribe every loaded
	// channel to the routing layer and append the operational components to
	// the app lifecycle.
	if err := wireBridge(application, appCtx, cfg, stores, metrics, logger); err != nil {
		return err
	}

	logger.Info("convobridge starting",
		"version", params.Version,
		"modules", len(ids),
		"state_backend", stores.Backend)
	return application.Run()
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/convobridge/convobridge.yaml →
// ~/.config/convobridge/convobridge.yaml → ./convobridge.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "convobridge", "convobridge.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "convobridge", "convobridge.yaml"))
	}

	candidates = append(candidates, "convobridge.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/convobridge if set, otherwise ~/.local/share/convobridge.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "convobridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "convobridge")
}
