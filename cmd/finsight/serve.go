package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/finsight/internal/app"
	"github.com/newthinker/finsight/internal/config"
	"github.com/newthinker/finsight/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FinSight web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// loadApp reads configuration and assembles the application.
func loadApp(ctx context.Context, log *zap.Logger) (*app.App, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults and environment")
	}

	a, err := app.New(ctx, cfg, log, app.Options{Version: Version})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing: %w", err)
	}
	return a, cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cfg, err := loadApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("starting FinSight server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	return a.Start(ctx)
}
