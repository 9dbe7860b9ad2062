package discord

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the Discord channel configuration.
type Config struct {
	Token      string        `yaml:"token"`
	GatewayURL string        `yaml:"gateway_url"`
	APIURL     string        `yaml:"api_url"`
	Intents    int           `yaml:"intents"`
	Enabled    *bool         `yaml:"enabled"`
	AllowBots  bool          `yaml:"allow_bots"`
	Resume     *bool         `yaml:"resume"`
	Timeout    time.Duration `yaml:"timeout"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.APIURL == "" {
		c.APIURL = "https://discord.com/api/v10"
	}
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.Resume == nil {
		resume := true
		c.Resume = &resume
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// validate checks configuration constraints.
func (c *Config) validate() error {
	if c.Token == "" {
		return errors.New("discord: token is required")
	}
	if c.Intents < 0 {
		return fmt.Errorf("discord: invalid intents %d", c.Intents)
	}
	return nil
}
