package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/api"
	"github.com/Haoqi7/FundQuant-Pro/internal/app"
	"github.com/Haoqi7/FundQuant-Pro/internal/config"
	"github.com/Haoqi7/FundQuant-Pro/internal/logger"
	"github.com/Haoqi7/FundQuant-Pro/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FundQuant server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		return config.Defaults(), nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	var m *metrics.Registry
	if cfg.Metrics.Enabled {
		m = metrics.NewRegistry()
	}

	application, err := app.New(cfg, m, log)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}

	server := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		MetricsPath: cfg.Metrics.Path,
	}, application, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting FundQuant server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("refresh_interval", cfg.Market.RefreshInterval),
	)

	errCh := make(chan error, 2)
	go func() {
		if err := application.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("application error: %w", err)
		}
	}()
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("fatal error", zap.Error(err))
	}

	application.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
