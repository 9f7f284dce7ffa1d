// Package enrich turns candidate jobs into persisted job records: validation,
// duplicate suppression, AI-backed classification and fraud screening with
// deterministic fallbacks, and the final accept/reject decision.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aguntuk/jobora/internal/gateway"
	"github.com/aguntuk/jobora/internal/model"
	"github.com/aguntuk/jobora/internal/textutil"
)

// Completer is the slice of the completion gateway the pipeline needs.
type Completer interface {
	Complete(ctx context.Context, req gateway.Request) (string, error)
}

// DetailFetcher retrieves the full posting page for the best-effort extended
// description step. May be nil to skip that step.
type DetailFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Config tunes the pipeline. Zero values fall back to defaults.
type Config struct {
	Model          string // completion model id
	FraudThreshold int    // fraud_score above this is rejected (default 70)
	SkillsCap      int    // max extracted skills kept (default 15)
}

func (c Config) withDefaults() Config {
	if c.FraudThreshold == 0 {
		c.FraudThreshold = 70
	}
	if c.SkillsCap == 0 {
		c.SkillsCap = 15
	}
	return c
}

// Result aggregates one batch's counters and carries the persisted records
// so callers can match them against alerts.
type Result struct {
	Scraped       int
	Invalid       int
	Duplicates    int
	FraudRejected int
	Accepted      int
	Persisted     int
	Records       []model.JobRecord
}

// Pipeline enriches and screens candidate jobs.
type Pipeline struct {
	completer Completer
	jobs      model.JobStore
	detail    DetailFetcher
	cfg       Config
	logger    *slog.Logger
}

// New wires a pipeline. completer may be nil when AI enrichment is disabled;
// all enrichment then runs on the deterministic fallbacks.
func New(completer Completer, jobs model.JobStore, detail DetailFetcher, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		completer: completer,
		jobs:      jobs,
		detail:    detail,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Process runs every candidate through the enrichment steps and persists the
// accepted records in one batch. No single candidate's failure aborts the
// batch; AI failures degrade to fallbacks per call.
func (p *Pipeline) Process(ctx context.Context, candidates []model.CandidateJob) (Result, error) {
	res := Result{Scraped: len(candidates)}

	existing, err := p.jobs.ListJobs(ctx)
	if err != nil {
		return res, fmt.Errorf("list existing jobs: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, j := range existing {
		seen[dedupeKey(j.Title, j.Company)] = struct{}{}
	}

	// Once the circuit reports open we stop asking for the rest of the batch.
	aiDown := p.completer == nil

	var accepted []model.JobRecord
	for _, cand := range candidates {
		if cand.Title == "" || cand.Company == "" {
			res.Invalid++
			continue
		}

		key := dedupeKey(cand.Title, cand.Company)
		if _, dup := seen[key]; dup {
			res.Duplicates++
			continue
		}

		record := p.enrich(ctx, cand, &aiDown)

		if record.IsFraud(p.cfg.FraudThreshold) {
			res.FraudRejected++
			p.logger.Info("rejected fraudulent posting",
				"correlation_id", cand.CorrelationID,
				"title", cand.Title,
				"fraud_score", record.FraudScore,
				"indicators", record.FraudIndicators,
			)
			continue
		}

		seen[key] = struct{}{}
		accepted = append(accepted, record)
	}

	res.Accepted = len(accepted)
	if len(accepted) > 0 {
		if err := p.jobs.InsertJobs(ctx, accepted); err != nil {
			return res, fmt.Errorf("persist accepted jobs: %w", err)
		}
	}
	res.Persisted = len(accepted)
	res.Records = accepted

	p.logger.Info("enrichment batch complete",
		"scraped", res.Scraped,
		"invalid", res.Invalid,
		"duplicates", res.Duplicates,
		"fraud_rejected", res.FraudRejected,
		"persisted", res.Persisted,
	)
	return res, nil
}

func dedupeKey(title, company string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(company))
}

// enrich builds the JobRecord for one candidate. Each AI sub-step returns an
// explicit (value, error) pair; a failure keeps the fallback value and the
// pipeline moves on.
func (p *Pipeline) enrich(ctx context.Context, cand model.CandidateJob, aiDown *bool) model.JobRecord {
	now := time.Now()
	record := model.JobRecord{
		ID:             uuid.NewString(),
		Title:          cand.Title,
		Company:        cand.Company,
		Location:       cand.Location,
		Salary:         cand.Salary,
		JobType:        cand.JobType,
		Description:    cand.Description,
		Requirements:   cand.Requirements,
		Source:         cand.Source,
		SourceURL:      cand.SourceURL,
		PostedAt:       cand.PostedAt,
		Category:       defaultCategory,
		SkillsRequired: cand.Requirements,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	p.fetchDetail(ctx, &record)

	record.Category = fallbackCategory(record.Title, record.Description)

	if !*aiDown {
		if category, err := p.classifyCategory(ctx, record); err != nil {
			p.noteAIFailure(cand.CorrelationID, "category", err, aiDown)
		} else {
			record.Category = category
		}
	}

	if !*aiDown {
		if skills, err := p.extractSkills(ctx, record); err != nil {
			p.noteAIFailure(cand.CorrelationID, "skills", err, aiDown)
		} else {
			record.SkillsRequired = skills
		}
	}
	if len(record.SkillsRequired) > p.cfg.SkillsCap {
		record.SkillsRequired = record.SkillsRequired[:p.cfg.SkillsCap]
	}

	assessment := fallbackFraud(record)
	if !*aiDown {
		if scored, err := p.scoreFraud(ctx, record); err != nil {
			p.noteAIFailure(cand.CorrelationID, "fraud", err, aiDown)
		} else {
			assessment = scored
		}
	}
	record.FraudScore = assessment.Score
	record.FraudIndicators = assessment.RedFlags

	record.ExperienceLevel = textutil.InferExperienceLevel(record.Title, record.Description)
	if record.JobType == "" {
		record.JobType = textutil.InferJobType(record.Title, record.Description)
	}
	record.IsRemote = textutil.InferRemote(record.Title, record.Description)
	record.IsHybrid = textutil.InferHybrid(record.Title, record.Description)

	return record
}

// fetchDetail replaces the description with the full posting page when that
// yields more text. Failures are ignored; the scraped text stays.
func (p *Pipeline) fetchDetail(ctx context.Context, record *model.JobRecord) {
	if p.detail == nil || record.SourceURL == "" {
		return
	}
	raw, err := p.detail.FetchText(ctx, record.SourceURL)
	if err != nil {
		p.logger.Debug("detail fetch failed", "url", record.SourceURL, "error", err)
		return
	}
	plain := textutil.StripHTML(raw)
	if len(plain) > len(record.Description) {
		record.Description = plain
	}
}

// noteAIFailure logs one degraded sub-step and latches aiDown when the
// circuit is open so the rest of the batch skips enrichment calls.
func (p *Pipeline) noteAIFailure(correlationID, step string, err error, aiDown *bool) {
	if errors.Is(err, gateway.ErrUnavailable) {
		*aiDown = true
		p.logger.Warn("completion service unavailable, disabling enrichment for this batch", "step", step)
		return
	}
	p.logger.Warn("enrichment step degraded to fallback",
		"correlation_id", correlationID,
		"step", step,
		"error", err,
	)
}

func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	return p.completer.Complete(ctx, gateway.Request{
		Model: p.cfg.Model,
		Messages: []gateway.Message{
			{Role: "system", Content: "You are a precise structured data extractor for job postings."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   512,
	})
}

// classifyCategory asks the gateway for a category and validates it against
// the fixed vocabulary. Out-of-vocabulary replies are errors.
func (p *Pipeline) classifyCategory(ctx context.Context, record model.JobRecord) (string, error) {
	var buf bytes.Buffer
	err := categoryTemplate.Execute(&buf, map[string]string{
		"Vocabulary":  strings.Join(CategoryVocabulary, ", "),
		"Title":       record.Title,
		"Company":     record.Company,
		"Description": clip(record.Description, 2000),
	})
	if err != nil {
		return "", fmt.Errorf("render category prompt: %w", err)
	}

	raw, err := p.complete(ctx, buf.String())
	if err != nil {
		return "", err
	}

	var reply struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return "", fmt.Errorf("unusable category reply: %w", err)
	}
	canonical, ok := inVocabulary(reply.Category)
	if !ok {
		return "", fmt.Errorf("category %q outside vocabulary", reply.Category)
	}
	return canonical, nil
}

// extractSkills asks the gateway for a skill list. Non-array replies are
// errors so the caller keeps the existing skills.
func (p *Pipeline) extractSkills(ctx context.Context, record model.JobRecord) ([]string, error) {
	var buf bytes.Buffer
	err := skillsTemplate.Execute(&buf, map[string]string{
		"Title":        record.Title,
		"Description":  clip(record.Description, 2000),
		"Requirements": strings.Join(record.Requirements, "; "),
	})
	if err != nil {
		return nil, fmt.Errorf("render skills prompt: %w", err)
	}

	raw, err := p.complete(ctx, buf.String())
	if err != nil {
		return nil, err
	}

	var skills []string
	if err := json.Unmarshal([]byte(stripFences(raw)), &skills); err != nil {
		return nil, fmt.Errorf("unusable skills reply: %w", err)
	}
	return skills, nil
}

// fraudAssessment is the structured fraud verdict, from the gateway or the
// fallback heuristic.
type fraudAssessment struct {
	Score    int      `json:"score"`
	Risk     string   `json:"risk"`
	RedFlags []string `json:"red_flags"`
}

// scoreFraud asks the gateway for a fraud assessment.
func (p *Pipeline) scoreFraud(ctx context.Context, record model.JobRecord) (fraudAssessment, error) {
	salary := "not stated"
	if record.Salary.Min != nil && record.Salary.Max != nil {
		salary = fmt.Sprintf("%.0f-%.0f %s %s", *record.Salary.Min, *record.Salary.Max, record.Salary.Currency, record.Salary.Period)
	}

	var buf bytes.Buffer
	err := fraudTemplate.Execute(&buf, map[string]string{
		"Title":       record.Title,
		"Company":     record.Company,
		"Location":    record.Location,
		"Salary":      salary,
		"Description": clip(record.Description, 2000),
	})
	if err != nil {
		return fraudAssessment{}, fmt.Errorf("render fraud prompt: %w", err)
	}

	raw, err := p.complete(ctx, buf.String())
	if err != nil {
		return fraudAssessment{}, err
	}

	var assessment fraudAssessment
	if err := json.Unmarshal([]byte(stripFences(raw)), &assessment); err != nil {
		return fraudAssessment{}, fmt.Errorf("unusable fraud reply: %w", err)
	}
	if assessment.Score < 0 || assessment.Score > 100 {
		return fraudAssessment{}, fmt.Errorf("fraud score %d out of range", assessment.Score)
	}
	return assessment, nil
}

// stripFences removes a markdown code fence around a JSON reply, if present.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
