package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/scanrelay-server/internal/app"
	"github.com/vovakirdan/scanrelay-server/internal/config"
	applog "github.com/vovakirdan/scanrelay-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "scanrelay-server",
		Short:         "Relay barcode scans between devices sharing a room code",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside development.
			_ = godotenv.Load()

			bootLog := applog.New("info", os.Getenv("LOG_FORMAT"))
			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				bootLog.Error().Err(err).Msg("failed to load config")
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			logger := applog.New(cfg.LogLevel, cfg.LogFormat)
			if path != "" {
				logger.Info().Str("path", path).Msg("config loaded")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to build app")
				return err
			}

			logger.Info().Str("addr", cfg.Addr()).Msg("starting scanrelay server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return fmt.Errorf("run: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP listen port (overrides PORT)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}
