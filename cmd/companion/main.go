package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/Hatchet-Jackk/bitcraft-companion/internal/app"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/cliconfig"
	"github.com/Hatchet-Jackk/bitcraft-companion/internal/outbox"
)

const helpDescription = `
Follow your BitCraft claim from the terminal.

Highlights:
  - Live claim inventory, crafting timers, and traveler tasks over one
    websocket subscription.
  - Ready alerts are bundled so a batch completion is one line, not fifty.
  - Configure via file, environment (BITCRAFT_*), or flags; the config
    file is watched so claim switches apply without a restart.
`

var exampleUsage = strings.TrimSpace(`
  companion --player Jackk
  companion --player Jackk --claim 360287970189639680
  companion --config $HOME/.bitcraft-companion/config.toml --debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "companion",
		Short:   "Follow your BitCraft claim from the terminal",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Precedence: defaults < file < env < flags. The changed map
			// records which flags were set explicitly so lower layers
			// never clobber them.
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := cliconfig.Logger(cfg.Debug)

			logCfg := cfg
			if logCfg.AuthToken != "" {
				logCfg.AuthToken = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			a := app.New(cfg, log)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := a.Start(ctx); err != nil {
				return fmt.Errorf("start: %w", err)
			}

			// Hot-reload the config file so a claim switch does not need a
			// restart.
			if cfgFile != "" {
				watcher := cliconfig.NewWatcher(log, cfgFile, func(fc cliconfig.FileConfig) {
					a.ApplyFileConfig(ctx, fc)
				})
				go watcher.Run(ctx)
			}

			go consume(ctx, log, a.Outbox())

			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						status := a.Status()
						if status == app.StateStopped || status == app.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
			case <-doneCh:
				if a.Status() == app.StateCrashed {
					log.Error().Msg("companion crashed")
				}
			}

			if err := a.Stop(); err != nil {
				return fmt.Errorf("stop: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.bitcraft-companion/config.toml)")
	root.Flags().StringVar(&cfg.PlayerName, "player", cfg.PlayerName, "in-game player name")
	root.Flags().StringVar(&cfg.Region, "region", cfg.Region, "game region module (e.g. bitcraft-1)")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "SpacetimeDB host")
	root.Flags().StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "bearer token for the game server")
	root.Flags().Uint64Var(&cfg.ClaimID, "claim", cfg.ClaimID, "claim entity id to follow (default: first claim the player belongs to)")

	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the reference data files")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for player.json")

	root.Flags().DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "timer evaluation interval")
	root.Flags().DurationVar(&cfg.BundleWindow, "bundle-window", cfg.BundleWindow, "window for grouping ready alerts")
	root.Flags().DurationVar(&cfg.SubscribeTimeout, "subscribe-timeout", cfg.SubscribeTimeout, "max wait for a subscription snapshot")
	root.Flags().DurationVar(&cfg.QueryTimeout, "query-timeout", cfg.QueryTimeout, "max wait for a one-off query")
	root.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")

	if err := root.Execute(); err != nil {
		log := cliconfig.Logger(false)
		log.Error().Err(err).Msg("companion")
		os.Exit(1)
	}
}

// consume drains the output channel and logs each update. A UI frontend
// would read the same channel instead.
func consume(ctx context.Context, log zerolog.Logger, out *outbox.Outbox) {
	for {
		update, err := out.Consume(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, outbox.ErrClosed) {
				log.Error().Err(err).Msg("output channel")
			}
			return
		}
		log.Info().
			Str("domain", string(update.Domain)).
			Uint64("seq", update.Seq).
			Interface("payload", update.Payload).
			Msg("update")
	}
}
