// Package cliconfig holds the companion's configuration: defaults, TOML
// config file, BITCRAFT_* environment overrides, and the small player-data
// file persisted between runs. Precedence is defaults < file < env < flags;
// the changed-flags map from cobra guards every lower layer.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultHost is the public SpacetimeDB endpoint for the game.
const DefaultHost = "bitcraft-early-access.spacetimedb.com"

// Config holds CLI configuration for the companion.
type Config struct {
	PlayerName string
	Region     string
	Host       string
	AuthToken  string
	ClaimID    uint64

	DataDir  string
	StateDir string

	TickInterval     time.Duration
	BundleWindow     time.Duration
	SubscribeTimeout time.Duration
	QueryTimeout     time.Duration
	ReconnectBase    time.Duration
	ReconnectMax     time.Duration

	Debug bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:             DefaultHost,
		Region:           "bitcraft-1",
		TickInterval:     time.Second,
		BundleWindow:     2 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		QueryTimeout:     10 * time.Second,
		ReconnectBase:    time.Second,
		ReconnectMax:     30 * time.Second,
		AuthToken:        os.Getenv("BITCRAFT_AUTH_TOKEN"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.PlayerName == "" {
		return fmt.Errorf("player name is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}

	if c.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve state dir: %w", err)
		}
		c.StateDir = filepath.Join(home, ".bitcraft-companion")
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(c.StateDir, "data")
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.BundleWindow <= 0 {
		return fmt.Errorf("bundle window must be positive")
	}
	return nil
}

// configSetter applies configuration values while respecting flag
// precedence: a value is skipped when its flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setUint64(flag string, value uint64, dst *uint64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setUint64FromString(flag, value string, dst *uint64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if id == 0 {
		return nil
	}
	*dst = id
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
