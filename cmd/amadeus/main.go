package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-amadeus/internal/bootstrap"
	"go-amadeus/internal/config"
	"go-amadeus/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	var configFile string

	cmd := &cobra.Command{
		Use:           "amadeus",
		Short:         "Community management bot: levels, tickets, private voice, moderation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.ReadFile(v, configFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (.env, yaml, json or toml)")
	flags.String("token", "", "Discord bot token (env DISCORD_TOKEN)")
	flags.String("guild", "", "restrict the bot to one guild id (env GUILD_ID)")
	flags.String("db", "", "SQLite database path (env DB_PATH)")
	flags.String("log-level", "", "DEBUG, INFO, WARN, ERROR or CRITICAL (env LOG_LEVEL)")
	flags.String("log-file", "", "also write logs to this file (env LOG_FILE)")
	flags.String("http", "", "keep-alive HTTP address, e.g. :8080 (env HTTP_ADDRESS)")

	bindFlags(v, cmd, map[string]string{
		"token":     config.KeyToken,
		"guild":     config.KeyGuildID,
		"db":        config.KeyDatabasePath,
		"log-level": config.KeyLogLevel,
		"log-file":  config.KeyLogFile,
		"http":      config.KeyHTTPAddress,
	})
	return cmd
}

// bindFlags lets an explicitly set flag override env and config file values.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bootstrap.New(cfg)
	if err := b.Initialize(ctx); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("Starting Amadeus")
	err := b.Run(ctx)
	logging.Info("Shutdown complete")
	return err
}
