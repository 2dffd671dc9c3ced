package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatpad-sync/internal/app"
	"github.com/vovakirdan/chatpad-sync/internal/config"
	"github.com/vovakirdan/chatpad-sync/internal/core"
	applog "github.com/vovakirdan/chatpad-sync/internal/log"
	"github.com/vovakirdan/chatpad-sync/internal/recency"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chatpad",
		Short:        "Timeline and presence engine for the chatpad client",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newLabelCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the backend and serve the local API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := applog.New(overrides.LogLevel, overrides.LogFormat)

			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}
			cfg.UpdateFrom(overrides)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := applog.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("backend", cfg.GraphQLURL).Msg("starting chatpad")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("chatpad exited with error")
				return err
			}
			logger.Info().Msg("chatpad stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "path to config.yaml")
	f.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&overrides.LogFormat, "log-format", "", "log format (console or json)")
	f.StringVar(&overrides.APIAddr, "api-addr", "", "local API listen address")
	f.StringVar(&overrides.GraphQLURL, "graphql-url", "", "backend GraphQL endpoint")
	f.StringVar(&overrides.SubscriptionsURL, "subscriptions-url", "", "backend subscriptions endpoint")
	f.StringVar(&overrides.Token, "token", "", "bearer token of the signed-in user")
	f.DurationVar(&overrides.HeartbeatInterval, "heartbeat-interval", 0, "activity heartbeat interval")
	f.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newLabelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label <minutes> [day] [time]",
		Short: "Print the recency label for an elapsed time",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("minutes must be an integer: %w", err)
			}
			var date core.DateLabel
			if len(args) > 1 {
				date.Day = args[1]
			}
			if len(args) > 2 {
				date.Time = args[2]
			}
			label, err := recency.Label(minutes, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", label.String(), label.Compact())
			return nil
		},
	}
}
