package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aguntuk/jobora/internal/store"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion cycle and exit",
	Long:  "Scrapes every enabled source, enriches and persists the postings, matches alerts and sends instant notifications, then prints a summary.",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scrape and enrich but persist nothing and send nothing")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
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

	orch := buildOrchestrator(cfg, st, dryRun, logger)

	summary, err := orch.RunIngestionCycle(context.Background())
	if err != nil {
		logger.Error("ingestion cycle failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("scraped:        %d\n", summary.Scraped)
	fmt.Printf("invalid:        %d\n", summary.Invalid)
	fmt.Printf("duplicates:     %d\n", summary.Duplicates)
	fmt.Printf("fraud rejected: %d\n", summary.FraudRejected)
	fmt.Printf("persisted:      %d\n", summary.Persisted)
	fmt.Printf("matches:        %d\n", summary.Matches)
	fmt.Printf("notifications:  %d sent, %d failed\n", summary.Sent, summary.Failed)
	if len(summary.FailedSources) > 0 {
		fmt.Printf("failed sources: %s\n", strings.Join(summary.FailedSources, ", "))
	}
	return nil
}
