// Package config handles the sagan.toml configuration file shared by
// the agent and collector roles.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Version of the binary, set at build time.
var Version = "dev"

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "sagan.toml"

// Config is the top level sagan.toml structure. Presence of a section
// enables the corresponding role; at least one must be present.
type Config struct {
	Agent     *Agent     `toml:"agent"`
	Collector *Collector `toml:"collector"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes and validates config file contents.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for errors that must stop start-up.
func (c *Config) Validate() error {
	if c.Agent == nil && c.Collector == nil {
		return fmt.Errorf("config enables neither [agent] nor [collector]")
	}
	if c.Agent != nil {
		if err := c.Agent.Validate(); err != nil {
			return err
		}
	}
	if c.Collector != nil {
		if err := c.Collector.Validate(); err != nil {
			return err
		}
	}
	return nil
}
