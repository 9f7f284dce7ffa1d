package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/aguntuk/jobora/internal/model"
	"github.com/aguntuk/jobora/internal/pipeline"
	"github.com/aguntuk/jobora/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion daemon",
	Long:  "Runs ingestion cycles on the configured interval and dispatches daily and weekly digests on their cron schedules; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"sources", len(cfg.Sources),
		"interval", cfg.Schedule.InstantInterval.String(),
		"daily_cron", cfg.Schedule.DailyCron,
		"weekly_cron", cfg.Schedule.WeeklyCron,
		"db_path", cfg.DBPath,
	)

	st, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	orch := buildOrchestrator(cfg, st, false, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A slow cycle must not pile up behind its own schedule.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc("@every "+cfg.Schedule.InstantInterval.String(), func() {
		if _, err := orch.RunIngestionCycle(ctx); err != nil {
			logger.Error("ingestion cycle failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to schedule ingestion cycles", "error", err)
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.Schedule.DailyCron, digestFunc(ctx, orch, model.FrequencyDaily, logger)); err != nil {
		logger.Error("failed to schedule daily digest", "error", err)
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.Schedule.WeeklyCron, digestFunc(ctx, orch, model.FrequencyWeekly, logger)); err != nil {
		logger.Error("failed to schedule weekly digest", "error", err)
		os.Exit(1)
	}

	// First cycle right away; cron fires the rest.
	if _, err := orch.RunIngestionCycle(ctx); err != nil {
		logger.Error("ingestion cycle failed", "error", err)
	}

	c.Start()
	<-ctx.Done()

	logger.Info("shutting down")
	<-c.Stop().Done()
	logger.Info("goodbye")
	return nil
}

func digestFunc(ctx context.Context, orch *pipeline.Orchestrator, freq model.Frequency, logger *slog.Logger) func() {
	return func() {
		res, err := orch.DispatchDigest(ctx, freq)
		if err != nil {
			logger.Error("digest dispatch failed", "frequency", freq, "error", err)
			return
		}
		logger.Info("digest dispatched", "frequency", freq, "sent", res.Sent, "failed", res.Failed)
	}
}
