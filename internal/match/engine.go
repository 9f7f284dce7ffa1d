// Package match scores persisted jobs against alert subscriptions. Scoring
// is pure; only factors the alert constrains contribute to the score and to
// the normalizing weight.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/aguntuk/jobora/internal/model"
)

// Factor weights. An absent constraint removes the factor from both the
// numerator and the denominator.
const (
	weightKeywords   = 30.0
	weightLocation   = 20.0
	weightJobType    = 15.0
	weightExperience = 15.0
	weightSalary     = 10.0
	weightRemote     = 10.0
)

// Config tunes the engine. Zero MinScore falls back to the default.
type Config struct {
	MinScore float64 // record matches scoring strictly above this (default 0.5)
}

// Engine computes and records alert matches.
type Engine struct {
	matches  model.MatchStore
	minScore float64
	logger   *slog.Logger
}

// NewEngine wires a matching engine.
func NewEngine(matches model.MatchStore, cfg Config, logger *slog.Logger) *Engine {
	minScore := cfg.MinScore
	if minScore == 0 {
		minScore = 0.5
	}
	return &Engine{
		matches:  matches,
		minScore: minScore,
		logger:   logger,
	}
}

// MatchAll scores every active alert against every job and upserts the pairs
// above threshold. Recomputation overwrites; it never duplicates. Returns the
// number of matches recorded.
func (e *Engine) MatchAll(ctx context.Context, alerts []model.AlertSubscription, jobs []model.JobRecord) (int, error) {
	recorded := 0
	for _, alert := range alerts {
		if !alert.IsActive {
			continue
		}
		for _, job := range jobs {
			score, keywords := Score(alert, job)
			if score <= e.minScore {
				continue
			}
			m := model.AlertMatch{
				AlertID:         alert.ID,
				JobID:           job.ID,
				Score:           score,
				MatchedKeywords: keywords,
			}
			if err := e.matches.UpsertMatch(ctx, m); err != nil {
				return recorded, fmt.Errorf("record match alert=%s job=%s: %w", alert.ID, job.ID, err)
			}
			recorded++
		}
	}

	e.logger.Info("alert matching complete",
		"alerts", len(alerts),
		"jobs", len(jobs),
		"matches", recorded,
	)
	return recorded, nil
}

// Score computes the weighted relevance of job for alert, returning the
// score in [0,1] and the alert keywords found in the job text.
func Score(alert model.AlertSubscription, job model.JobRecord) (float64, []string) {
	var achieved, applicable float64
	var matchedKeywords []string

	if len(alert.Keywords) > 0 {
		applicable += weightKeywords
		haystack := strings.ToLower(job.Title + " " + job.Description + " " + strings.Join(job.SkillsRequired, " "))
		for _, kw := range alert.Keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				matchedKeywords = append(matchedKeywords, kw)
			}
		}
		achieved += weightKeywords * float64(len(matchedKeywords)) / float64(len(alert.Keywords))
	}

	if len(alert.Locations) > 0 {
		applicable += weightLocation
		jobLocation := strings.ToLower(job.Location)
		for _, loc := range alert.Locations {
			if strings.Contains(jobLocation, strings.ToLower(loc)) {
				achieved += weightLocation
				break
			}
		}
	}

	if len(alert.JobTypes) > 0 {
		applicable += weightJobType
		for _, jt := range alert.JobTypes {
			if job.JobType == jt {
				achieved += weightJobType
				break
			}
		}
	}

	if len(alert.ExperienceLevels) > 0 {
		applicable += weightExperience
		for _, lvl := range alert.ExperienceLevels {
			if job.ExperienceLevel == lvl {
				achieved += weightExperience
				break
			}
		}
	}

	if alert.SalaryMin != nil || alert.SalaryMax != nil {
		applicable += weightSalary
		if salaryOverlaps(alert, job) {
			achieved += weightSalary
		}
	}

	if alert.IsRemote != nil {
		applicable += weightRemote
		if job.IsRemote == *alert.IsRemote {
			achieved += weightRemote
		}
	}

	if applicable == 0 {
		return 0, nil
	}
	return math.Min(math.Max(achieved/applicable, 0), 1), matchedKeywords
}

// salaryOverlaps reports whether the job and alert salary ranges intersect.
// Open-ended bounds are treated as 0 and +inf.
func salaryOverlaps(alert model.AlertSubscription, job model.JobRecord) bool {
	jobMin, jobMax := 0.0, math.Inf(1)
	if job.Salary.Min != nil {
		jobMin = *job.Salary.Min
	}
	if job.Salary.Max != nil {
		jobMax = *job.Salary.Max
	}

	alertMin, alertMax := 0.0, math.Inf(1)
	if alert.SalaryMin != nil {
		alertMin = *alert.SalaryMin
	}
	if alert.SalaryMax != nil {
		alertMax = *alert.SalaryMax
	}

	return jobMin <= alertMax && alertMin <= jobMax
}
