package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aguntuk/jobora/internal/review"
	"github.com/aguntuk/jobora/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse persisted jobs and their matches (TUI)",
	Long:  "Opens a split-pane terminal browser: jobs on the left, the alert matches recorded for the selected job on the right.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	jobs, err := st.ListJobs(context.Background())
	if err != nil {
		logger.Error("failed to load jobs", "error", err)
		os.Exit(1)
	}

	return review.Run(jobs, st)
}
