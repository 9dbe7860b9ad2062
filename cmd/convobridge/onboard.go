package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// onboardAnswers collects the interactive setup choices.
type onboardAnswers struct {
	EnableDiscord  bool
	DiscordToken   string
	EnableTerminal bool
	Backend        string
	StatePath      string
	AdminEnabled   bool
	AdminAddr      string
	Broadcast      bool
	Overwrite      bool
}

func onboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Interactively create a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("output")
			if path == "" {
				path = defaultConfigPath()
			}
			return runOnboard(path)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Where to write the configuration file")
	return cmd
}

func runOnboard(path string) error {
	answers := onboardAnswers{
		EnableTerminal: true,
		Backend:        "memory",
		AdminAddr:      "127.0.0.1:8080",
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the Discord channel?").
				Description("Requires a bot token with the message content intent.").
				Value(&answers.EnableDiscord),
			huh.NewInput().
				Title("Discord bot token").
				EchoMode(huh.EchoModePassword).
				Placeholder("leave empty to use ${DISCORD_BOT_TOKEN}").
				Value(&answers.DiscordToken),
			huh.NewConfirm().
				Title("Enable the terminal channel?").
				Description("A local prompt for talking to the bridge without credentials.").
				Value(&answers.EnableTerminal),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("State backend").
				Options(
					huh.NewOption("In-memory (lost on restart)", "memory"),
					huh.NewOption("SQLite (durable)", "sqlite"),
				).
				Value(&answers.Backend),
			huh.NewInput().
				Title("SQLite database path").
				Placeholder("~/.local/share/convobridge/state.db").
				Value(&answers.StatePath),
			huh.NewConfirm().
				Title("Enable the admin HTTP server?").
				Description("Health, status, and Prometheus metrics endpoints.").
				Value(&answers.AdminEnabled),
			huh.NewConfirm().
				Title("Broadcast replies to every connected channel?").
				Value(&answers.Broadcast),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("onboarding aborted: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite?", path)).
			Value(&answers.Overwrite)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("onboarding aborted: %w", err)
		}
		if !answers.Overwrite {
			fmt.Println("Keeping the existing configuration.")
			return nil
		}
	}

	doc := buildConfigDocument(answers)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Start the bridge with: convobridge start")
	return nil
}

// buildConfigDocument assembles the YAML document from the answers. Secrets
// default to environment references so the file stays safe to commit.
func buildConfigDocument(a onboardAnswers) map[string]any {
	modules := map[string]any{}
	if a.EnableDiscord {
		token := a.DiscordToken
		if token == "" {
			token = "${DISCORD_BOT_TOKEN}"
		}
		modules["channel.discord"] = map[string]any{"token": token}
	}
	if a.EnableTerminal {
		modules["channel.terminal"] = map[string]any{}
	}

	doc := map[string]any{
		"version": "1",
		"modules": modules,
	}
	if a.Broadcast {
		doc["routing"] = map[string]any{"broadcast": true}
	}
	if a.Backend == "sqlite" {
		statePath := a.StatePath
		if statePath == "" {
			statePath = filepath.Join(defaultDataDir(), "state.db")
		}
		doc["state"] = map[string]any{"backend": "sqlite", "path": statePath}
	}
	if a.AdminEnabled {
		doc["admin"] = map[string]any{"enabled": true, "addr": a.AdminAddr}
	}
	return doc
}

func defaultConfigPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "convobridge", "convobridge.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "convobridge", "convobridge.yaml")
}

func defaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "convobridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "convobridge")
}
