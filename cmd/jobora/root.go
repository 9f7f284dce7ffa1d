package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/aguntuk/jobora/internal/config"
	"github.com/aguntuk/jobora/internal/enrich"
	"github.com/aguntuk/jobora/internal/gateway"
	"github.com/aguntuk/jobora/internal/match"
	"github.com/aguntuk/jobora/internal/model"
	"github.com/aguntuk/jobora/internal/notify"
	"github.com/aguntuk/jobora/internal/pipeline"
	"github.com/aguntuk/jobora/internal/scrape"
	"github.com/aguntuk/jobora/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobora",
	Short: "Job intake and alerting pipeline",
	Long:  "Jobora scrapes job boards, screens postings for fraud, matches them against saved alerts and notifies subscribers.",
	// Default to `start` so that `jobora` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBORA_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBORA_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBORA_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func buildAdapters(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []scrape.Adapter {
	var adapters []scrape.Adapter
	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		// Each source gets its own limiter: politeness is per host.
		limiter := rate.NewLimiter(rate.Every(cfg.Scrape.MinDelay), 1)
		fetcher := scrape.NewFetcher(httpClient, cfg.Scrape.Retries, cfg.Scrape.Backoff, limiter, logger)
		adapters = append(adapters, scrape.NewSiteAdapter(src.Name, src.URL, scrape.RulesFor(src.Name), fetcher, logger))
		logger.Info("registered source", "name", src.Name, "url", src.URL)
	}
	return adapters
}

// allChannelSender is a transport covering every channel; both senders in
// the notify package do.
type allChannelSender interface {
	model.EmailSender
	model.PushSender
	model.SMSSender
}

// channelSender picks the transport for one channel: a webhook when an
// endpoint is configured and the channel enabled, log-only otherwise.
func channelSender(ch config.ChannelConfig, httpClient *http.Client, logger *slog.Logger) allChannelSender {
	if ch.Enabled && ch.Endpoint != "" {
		return notify.NewWebhookSender(ch.Endpoint, httpClient)
	}
	return notify.NewLogSender(logger)
}

func buildSenders(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.EmailSender, model.PushSender, model.SMSSender) {
	email := channelSender(cfg.Notification.Email, httpClient, logger)
	push := channelSender(cfg.Notification.Push, httpClient, logger)
	sms := channelSender(cfg.Notification.SMS, httpClient, logger)
	return email, push, sms
}

func buildOrchestrator(cfg *config.Config, st *store.Store, dryRun bool, logger *slog.Logger) *pipeline.Orchestrator {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	var jobs model.JobStore = st
	var matches model.MatchStore = st
	email, push, sms := buildSenders(cfg, httpClient, logger)
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted or sent")
		jobs = pipeline.DryRunJobStore{JobStore: st}
		matches = pipeline.DryRunMatchStore{}
		logSender := notify.NewLogSender(logger)
		email, push, sms = logSender, logSender, logSender
	}

	var completer enrich.Completer
	if cfg.AI.Enabled {
		provider := gateway.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, httpClient)
		completer = gateway.New(provider, gateway.Config{
			MaxRetries:       cfg.AI.MaxRetries,
			CallTimeout:      cfg.AI.Timeout,
			FailureThreshold: cfg.AI.FailureThreshold,
			RecoveryTimeout:  cfg.AI.RecoveryTimeout,
		}, logger)
		logger.Info("ai enrichment enabled", "model", cfg.AI.Model)
	}

	detailLimiter := rate.NewLimiter(rate.Every(cfg.Scrape.MinDelay), 1)
	detail := scrape.NewFetcher(httpClient, cfg.Scrape.Retries, cfg.Scrape.Backoff, detailLimiter, logger)

	enricher := enrich.New(completer, jobs, detail, enrich.Config{
		Model:          cfg.AI.Model,
		FraudThreshold: cfg.Enrichment.FraudThreshold,
		SkillsCap:      cfg.Enrichment.SkillsCap,
	}, logger)
	engine := match.NewEngine(matches, match.Config{MinScore: cfg.Matching.MinScore}, logger)
	dispatcher := notify.NewDispatcher(st, email, push, sms, cfg.Notification.BaseURL, logger)
	adapters := buildAdapters(cfg, httpClient, logger)

	return pipeline.New(adapters, enricher, engine, dispatcher, jobs, st, matches, logger)
}
