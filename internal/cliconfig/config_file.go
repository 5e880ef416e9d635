package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly.
type FileConfig struct {
	PlayerName string `toml:"player_name"`
	Region     string `toml:"region"`
	Host       string `toml:"host"`
	AuthToken  string `toml:"auth_token"`
	ClaimID    uint64 `toml:"claim_id"`

	DataDir  string `toml:"data_dir"`
	StateDir string `toml:"state_dir"`

	TickInterval     string `toml:"tick_interval"`
	BundleWindow     string `toml:"bundle_window"`
	SubscribeTimeout string `toml:"subscribe_timeout"`
	QueryTimeout     string `toml:"query_timeout"`

	Debug *bool `toml:"debug"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.bitcraft-companion/config.toml if the user
// home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".bitcraft-companion", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct,
// respecting flags that have been explicitly set.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("player", fc.PlayerName, &cfg.PlayerName)
	s.setString("region", fc.Region, &cfg.Region)
	s.setString("host", fc.Host, &cfg.Host)
	s.setString("auth-token", fc.AuthToken, &cfg.AuthToken)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)

	s.setUint64("claim", fc.ClaimID, &cfg.ClaimID)

	if err := s.setDuration("tick", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("bundle-window", fc.BundleWindow, &cfg.BundleWindow); err != nil {
		return err
	}
	if err := s.setDuration("subscribe-timeout", fc.SubscribeTimeout, &cfg.SubscribeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("query-timeout", fc.QueryTimeout, &cfg.QueryTimeout); err != nil {
		return err
	}

	s.setBool("debug", fc.Debug, &cfg.Debug)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
