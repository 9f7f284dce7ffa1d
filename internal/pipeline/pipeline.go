// Package pipeline orchestrates one ingestion cycle: scrape, enrich,
// persist, match, notify. It owns no business rules of its own; every step
// delegates to its package.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aguntuk/jobora/internal/enrich"
	"github.com/aguntuk/jobora/internal/match"
	"github.com/aguntuk/jobora/internal/model"
	"github.com/aguntuk/jobora/internal/notify"
	"github.com/aguntuk/jobora/internal/scrape"
)

// CycleSummary reports what one ingestion cycle did.
type CycleSummary struct {
	Scraped       int
	Invalid       int
	Duplicates    int
	FraudRejected int
	Persisted     int
	Matches       int
	Sent          int
	Failed        int
	FailedSources []string
}

// Orchestrator wires the stages together.
type Orchestrator struct {
	adapters   []scrape.Adapter
	enricher   *enrich.Pipeline
	engine     *match.Engine
	dispatcher *notify.Dispatcher
	jobs       model.JobStore
	alerts     model.AlertStore
	matches    model.MatchStore
	logger     *slog.Logger
}

// New assembles an orchestrator from already-wired stages.
func New(
	adapters []scrape.Adapter,
	enricher *enrich.Pipeline,
	engine *match.Engine,
	dispatcher *notify.Dispatcher,
	jobs model.JobStore,
	alerts model.AlertStore,
	matches model.MatchStore,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		adapters:   adapters,
		enricher:   enricher,
		engine:     engine,
		dispatcher: dispatcher,
		jobs:       jobs,
		alerts:     alerts,
		matches:    matches,
		logger:     logger,
	}
}

// RunIngestionCycle runs one full cycle. A failed source contributes an
// empty job list and its name in FailedSources; it never aborts the cycle.
// Instant-frequency matches are dispatched before the cycle returns; daily
// and weekly matches wait for their digest.
func (o *Orchestrator) RunIngestionCycle(ctx context.Context) (CycleSummary, error) {
	start := time.Now()
	var summary CycleSummary

	outcomes := scrape.RunAll(ctx, o.adapters, o.logger)
	var candidates []model.CandidateJob
	for _, out := range outcomes {
		if out.Err != nil {
			summary.FailedSources = append(summary.FailedSources, out.Source)
			continue
		}
		candidates = append(candidates, out.Jobs...)
	}

	res, err := o.enricher.Process(ctx, candidates)
	summary.Scraped = res.Scraped
	summary.Invalid = res.Invalid
	summary.Duplicates = res.Duplicates
	summary.FraudRejected = res.FraudRejected
	summary.Persisted = res.Persisted
	if err != nil {
		return summary, fmt.Errorf("enrichment: %w", err)
	}

	if len(res.Records) > 0 {
		alerts, err := o.alerts.ListActiveAlerts(ctx)
		if err != nil {
			return summary, fmt.Errorf("list alerts: %w", err)
		}
		summary.Matches, err = o.engine.MatchAll(ctx, alerts, res.Records)
		if err != nil {
			return summary, fmt.Errorf("matching: %w", err)
		}
	}

	notif, err := o.DispatchDigest(ctx, model.FrequencyInstant)
	summary.Sent = notif.Sent
	summary.Failed = notif.Failed
	if err != nil {
		return summary, fmt.Errorf("instant dispatch: %w", err)
	}

	o.logger.Info("ingestion cycle complete",
		"scraped", summary.Scraped,
		"persisted", summary.Persisted,
		"matches", summary.Matches,
		"sent", summary.Sent,
		"failed_sources", summary.FailedSources,
		"elapsed", time.Since(start),
	)
	return summary, nil
}

// DispatchDigest sends every unsent match for alerts of the given frequency,
// batched per alert. A match is marked sent once at least one channel
// delivered; fully failed batches stay unsent and retry on the next run.
func (o *Orchestrator) DispatchDigest(ctx context.Context, freq model.Frequency) (notify.Result, error) {
	var total notify.Result

	unsent, err := o.matches.ListUnsentMatches(ctx, freq)
	if err != nil {
		return total, fmt.Errorf("list unsent matches: %w", err)
	}
	if len(unsent) == 0 {
		return total, nil
	}

	alerts, err := o.alerts.ListActiveAlerts(ctx)
	if err != nil {
		return total, fmt.Errorf("list alerts: %w", err)
	}
	alertByID := make(map[string]model.AlertSubscription, len(alerts))
	for _, a := range alerts {
		alertByID[a.ID] = a
	}

	byAlert := make(map[string][]model.AlertMatch)
	for _, m := range unsent {
		byAlert[m.AlertID] = append(byAlert[m.AlertID], m)
	}

	for alertID, matches := range byAlert {
		alert, ok := alertByID[alertID]
		if !ok {
			// Alert deactivated since matching; leave its matches unsent.
			continue
		}

		batch := notify.UserBatch{Alert: alert}
		for _, m := range matches {
			job, err := o.jobs.GetJob(ctx, m.JobID)
			if err != nil {
				o.logger.Error("matched job missing, skipping",
					"alert_id", alertID,
					"job_id", m.JobID,
					"error", err,
				)
				continue
			}
			batch.Jobs = append(batch.Jobs, notify.MatchedJob{
				Job:      job,
				Score:    m.Score,
				Keywords: m.MatchedKeywords,
			})
		}
		if len(batch.Jobs) == 0 {
			continue
		}

		res := o.dispatcher.Dispatch(ctx, batch)
		total.Sent += res.Sent
		total.Failed += res.Failed
		if res.Sent == 0 && res.Failed > 0 {
			continue
		}

		now := time.Now()
		for _, m := range matches {
			if err := o.matches.MarkMatchSent(ctx, m.AlertID, m.JobID, now); err != nil {
				return total, fmt.Errorf("mark match sent: %w", err)
			}
		}
	}

	return total, nil
}

// DryRunJobStore reads through to the wrapped store but drops writes. Used
// by the run command's --dry-run mode.
type DryRunJobStore struct {
	model.JobStore
}

func (DryRunJobStore) InsertJobs(context.Context, []model.JobRecord) error { return nil }
func (DryRunJobStore) UpdateJob(context.Context, model.JobRecord) error    { return nil }

// DryRunMatchStore counts nothing and records nothing. With it wired, the
// instant dispatch naturally sees no unsent matches.
type DryRunMatchStore struct{}

var _ model.MatchStore = DryRunMatchStore{}

func (DryRunMatchStore) UpsertMatch(context.Context, model.AlertMatch) error { return nil }
func (DryRunMatchStore) ListUnsentMatches(context.Context, model.Frequency) ([]model.AlertMatch, error) {
	return nil, nil
}
func (DryRunMatchStore) MarkMatchSent(context.Context, string, string, time.Time) error { return nil }
