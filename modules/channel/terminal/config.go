package terminal

import "errors"

// Config holds the terminal channel configuration.
type Config struct {
	Prompt      string `yaml:"prompt"`
	User        string `yaml:"user"`
	ChannelID   string `yaml:"channel_id"`
	HistoryFile string `yaml:"history_file"`
	Enabled     *bool  `yaml:"enabled"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.Prompt == "" {
		c.Prompt = "> "
	}
	if c.User == "" {
		c.User = "local"
	}
	if c.ChannelID == "" {
		c.ChannelID = "terminal"
	}
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
}

// validate checks configuration constraints.
func (c *Config) validate() error {
	if c.User == "" {
		return errors.New("terminal: user must not be empty")
	}
	return nil
}
