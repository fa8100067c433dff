package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"feedingest/internal/app"
	"feedingest/internal/config"
	"feedingest/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "feedingest",
		Short:         "Discover, summarize, and index articles from a web feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newRunCmd(&configPath), newServeCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a single pipeline pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load(*configPath)
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.RunOnce(cmd.Context())
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load(*configPath)
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Serve(ctx)
		},
	}
}
