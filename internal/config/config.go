// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the Jobora pipeline.
type Config struct {
	DBPath       string
	Sources      []SourceConfig
	Scrape       ScrapeConfig
	AI           AIConfig
	Enrichment   EnrichmentConfig
	Matching     MatchingConfig
	Notification NotificationConfig
	Schedule     ScheduleConfig
}

// SourceConfig describes one job board to scrape.
type SourceConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// ScrapeConfig controls adapter HTTP behavior.
type ScrapeConfig struct {
	Retries  int           // fetch attempts beyond the first
	Backoff  time.Duration // linear backoff unit between attempts
	MinDelay time.Duration // minimum gap between requests to the same host
}

// AIConfig controls the completion gateway.
type AIConfig struct {
	Enabled          bool
	BaseURL          string // defaults to https://api.openai.com/v1
	APIKey           string // expanded from env var by Load
	Model            string
	Timeout          time.Duration // per-call timeout
	MaxRetries       int
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// EnrichmentConfig tunes the enrichment pipeline.
type EnrichmentConfig struct {
	FraudThreshold int // records scoring above this are rejected
	SkillsCap      int
}

// MatchingConfig tunes the alert matching engine.
type MatchingConfig struct {
	MinScore float64 // matches scoring at or below this are discarded
}

// ChannelConfig enables one delivery channel and names its endpoint.
// An enabled channel with no endpoint falls back to log-only delivery.
type ChannelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// NotificationConfig controls delivery channels and link rendering.
type NotificationConfig struct {
	BaseURL string        `yaml:"base_url"` // web app base for batch deep links
	Email   ChannelConfig `yaml:"email"`
	Push    ChannelConfig `yaml:"push"`
	SMS     ChannelConfig `yaml:"sms"`
}

// ScheduleConfig drives the start daemon.
type ScheduleConfig struct {
	InstantInterval time.Duration // gap between ingestion cycles
	DailyCron       string        // cron expression for the daily digest
	WeeklyCron      string        // cron expression for the weekly digest
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultDailyCron     = "0 8 * * *"
	defaultWeeklyCron    = "0 8 * * 1"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	DBPath       string             `yaml:"db_path"`
	Sources      []SourceConfig     `yaml:"sources"`
	Scrape       rawScrapeConfig    `yaml:"scrape"`
	AI           rawAIConfig        `yaml:"ai"`
	Enrichment   rawEnrichConfig    `yaml:"enrichment"`
	Matching     rawMatchingConfig  `yaml:"matching"`
	Notification NotificationConfig `yaml:"notification"`
	Schedule     rawScheduleConfig  `yaml:"schedule"`
}

type rawScrapeConfig struct {
	Retries  int    `yaml:"retries"`
	Backoff  string `yaml:"backoff"`
	MinDelay string `yaml:"min_delay"`
}

type rawAIConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	Timeout          string `yaml:"timeout"`
	MaxRetries       int    `yaml:"max_retries"`
	FailureThreshold int    `yaml:"failure_threshold"`
	RecoveryTimeout  string `yaml:"recovery_timeout"`
}

type rawEnrichConfig struct {
	FraudThreshold *int `yaml:"fraud_threshold"`
	SkillsCap      int  `yaml:"skills_cap"`
}

type rawMatchingConfig struct {
	MinScore *float64 `yaml:"min_score"`
}

type rawScheduleConfig struct {
	InstantInterval string `yaml:"instant_interval"`
	DailyCron       string `yaml:"daily_cron"`
	WeeklyCron      string `yaml:"weekly_cron"`
}

// Load reads and parses the YAML config at path, expands environment
// variables, applies defaults, validates, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	scrapeBackoff, err := durationOrDefault(raw.Scrape.Backoff, 2*time.Second, "scrape.backoff")
	if err != nil {
		return nil, err
	}
	scrapeMinDelay, err := durationOrDefault(raw.Scrape.MinDelay, 500*time.Millisecond, "scrape.min_delay")
	if err != nil {
		return nil, err
	}
	aiTimeout, err := durationOrDefault(raw.AI.Timeout, 30*time.Second, "ai.timeout")
	if err != nil {
		return nil, err
	}
	aiRecovery, err := durationOrDefault(raw.AI.RecoveryTimeout, 60*time.Second, "ai.recovery_timeout")
	if err != nil {
		return nil, err
	}
	instantInterval, err := durationOrDefault(raw.Schedule.InstantInterval, 15*time.Minute, "schedule.instant_interval")
	if err != nil {
		return nil, err
	}

	scrapeRetries := raw.Scrape.Retries
	if scrapeRetries <= 0 {
		scrapeRetries = 2
	}

	aiBaseURL := raw.AI.BaseURL
	if aiBaseURL == "" {
		aiBaseURL = defaultOpenAIBaseURL
	}
	aiMaxRetries := raw.AI.MaxRetries
	if aiMaxRetries <= 0 {
		aiMaxRetries = 3
	}
	aiFailureThreshold := raw.AI.FailureThreshold
	if aiFailureThreshold <= 0 {
		aiFailureThreshold = 5
	}

	fraudThreshold := 70
	if raw.Enrichment.FraudThreshold != nil {
		fraudThreshold = *raw.Enrichment.FraudThreshold
	}
	skillsCap := raw.Enrichment.SkillsCap
	if skillsCap <= 0 {
		skillsCap = 15
	}

	minScore := 0.5
	if raw.Matching.MinScore != nil {
		minScore = *raw.Matching.MinScore
	}

	dbPath := raw.DBPath
	if dbPath == "" {
		dbPath = "jobora.db"
	}

	dailyCron := raw.Schedule.DailyCron
	if dailyCron == "" {
		dailyCron = defaultDailyCron
	}
	weeklyCron := raw.Schedule.WeeklyCron
	if weeklyCron == "" {
		weeklyCron = defaultWeeklyCron
	}

	cfg := &Config{
		DBPath:  dbPath,
		Sources: raw.Sources,
		Scrape: ScrapeConfig{
			Retries:  scrapeRetries,
			Backoff:  scrapeBackoff,
			MinDelay: scrapeMinDelay,
		},
		AI: AIConfig{
			Enabled:          raw.AI.Enabled,
			BaseURL:          aiBaseURL,
			APIKey:           raw.AI.APIKey,
			Model:            raw.AI.Model,
			Timeout:          aiTimeout,
			MaxRetries:       aiMaxRetries,
			FailureThreshold: aiFailureThreshold,
			RecoveryTimeout:  aiRecovery,
		},
		Enrichment: EnrichmentConfig{
			FraudThreshold: fraudThreshold,
			SkillsCap:      skillsCap,
		},
		Matching:     MatchingConfig{MinScore: minScore},
		Notification: raw.Notification,
		Schedule: ScheduleConfig{
			InstantInterval: instantInterval,
			DailyCron:       dailyCron,
			WeeklyCron:      weeklyCron,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationOrDefault(raw string, def time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	enabled := 0
	for _, s := range cfg.Sources {
		if !s.Enabled {
			continue
		}
		enabled++
		if s.Name == "" {
			return fmt.Errorf("every enabled source needs a name")
		}
		if s.URL == "" {
			return fmt.Errorf("source %q has no url", s.Name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	if cfg.Enrichment.FraudThreshold < 0 || cfg.Enrichment.FraudThreshold > 100 {
		return fmt.Errorf("enrichment.fraud_threshold must be in [0, 100], got %d", cfg.Enrichment.FraudThreshold)
	}
	if cfg.Matching.MinScore < 0 || cfg.Matching.MinScore >= 1 {
		return fmt.Errorf("matching.min_score must be in [0, 1), got %v", cfg.Matching.MinScore)
	}
	if cfg.Schedule.InstantInterval <= 0 {
		return fmt.Errorf("schedule.instant_interval must be positive, got %v", cfg.Schedule.InstantInterval)
	}

	return nil
}
