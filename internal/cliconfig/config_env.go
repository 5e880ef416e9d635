package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (BITCRAFT_*). Env overrides the file but is overridden by flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("player", os.Getenv("BITCRAFT_PLAYER"), &cfg.PlayerName)
	s.setString("region", os.Getenv("BITCRAFT_REGION"), &cfg.Region)
	s.setString("host", os.Getenv("BITCRAFT_HOST"), &cfg.Host)
	s.setString("auth-token", os.Getenv("BITCRAFT_AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("data-dir", os.Getenv("BITCRAFT_DATA_DIR"), &cfg.DataDir)
	s.setString("state-dir", os.Getenv("BITCRAFT_STATE_DIR"), &cfg.StateDir)

	if err := s.setUint64FromString("claim", os.Getenv("BITCRAFT_CLAIM_ID"), &cfg.ClaimID); err != nil {
		return err
	}

	if err := s.setDuration("tick", os.Getenv("BITCRAFT_TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("bundle-window", os.Getenv("BITCRAFT_BUNDLE_WINDOW"), &cfg.BundleWindow); err != nil {
		return err
	}
	if err := s.setDuration("subscribe-timeout", os.Getenv("BITCRAFT_SUBSCRIBE_TIMEOUT"), &cfg.SubscribeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("query-timeout", os.Getenv("BITCRAFT_QUERY_TIMEOUT"), &cfg.QueryTimeout); err != nil {
		return err
	}

	s.setBoolFromString("debug", os.Getenv("BITCRAFT_DEBUG"), &cfg.Debug)

	return nil
}
