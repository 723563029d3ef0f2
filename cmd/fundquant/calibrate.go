package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/app"
	"github.com/Haoqi7/FundQuant-Pro/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Run one correction-factor calibration and exit",
	RunE:  runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	application, err := app.New(cfg, nil, log)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := application.Load(ctx); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	// The catalog is empty on a cold start; ranking the curated pool
	// seeds it with the funds worth calibrating.
	application.Ranking(ctx)

	n, err := application.Calibrate(ctx)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	log.Info("calibration complete", zap.Int("funds", n))
	fmt.Printf("calibrated %d funds\n", n)
	return nil
}
