package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aguntuk/jobora/internal/model"
)

var (
	_ model.AlertStore = (*Store)(nil)
	_ model.MatchStore = (*Store)(nil)
)

var alertColumns = []string{
	"id", "user_id", "keywords", "locations", "job_types", "experience_levels",
	"salary_min", "salary_max", "categories", "is_remote",
	"frequency", "is_active", "channels",
}

// ListActiveAlerts returns every alert with is_active set.
func (s *Store) ListActiveAlerts(ctx context.Context) ([]model.AlertSubscription, error) {
	query, args, err := sq.Select(alertColumns...).
		From("job_alerts").
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list alerts query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.AlertSubscription
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// GetAlert returns one alert by id.
func (s *Store) GetAlert(ctx context.Context, id string) (model.AlertSubscription, error) {
	query, args, err := sq.Select(alertColumns...).
		From("job_alerts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.AlertSubscription{}, fmt.Errorf("build get alert query: %w", err)
	}

	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return model.AlertSubscription{}, fmt.Errorf("alert %s not found", id)
	}
	if err != nil {
		return model.AlertSubscription{}, fmt.Errorf("get alert %s: %w", id, err)
	}
	return alert, nil
}

// SaveAlert inserts or replaces an alert subscription. Alerts are owned by
// the user-facing application; this exists for seeding and tests.
func (s *Store) SaveAlert(ctx context.Context, alert model.AlertSubscription) error {
	keywords, err := encodeStrings(alert.Keywords)
	if err != nil {
		return err
	}
	locations, err := encodeStrings(alert.Locations)
	if err != nil {
		return err
	}
	jobTypes, err := encodeStrings(jobTypesToStrings(alert.JobTypes))
	if err != nil {
		return err
	}
	levels, err := encodeStrings(levelsToStrings(alert.ExperienceLevels))
	if err != nil {
		return err
	}
	categories, err := encodeStrings(alert.Categories)
	if err != nil {
		return err
	}
	channels, err := encodeStrings(channelsToStrings(alert.Channels))
	if err != nil {
		return err
	}

	query, args, err := sq.Replace("job_alerts").
		Columns(alertColumns...).
		Values(
			alert.ID, alert.UserID, keywords, locations, jobTypes, levels,
			alert.SalaryMin, alert.SalaryMax, categories, alert.IsRemote,
			string(alert.Frequency), alert.IsActive, channels,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save alert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save alert %s: %w", alert.ID, err)
	}
	return nil
}

func scanAlert(row rowScanner) (model.AlertSubscription, error) {
	var (
		alert                                  model.AlertSubscription
		keywords, locations, jobTypes          sql.NullString
		levels, categories, channels           sql.NullString
		salaryMin, salaryMax                   sql.NullFloat64
		isRemote                               sql.NullBool
		frequency                              string
	)

	err := row.Scan(
		&alert.ID, &alert.UserID, &keywords, &locations, &jobTypes, &levels,
		&salaryMin, &salaryMax, &categories, &isRemote,
		&frequency, &alert.IsActive, &channels,
	)
	if err != nil {
		return model.AlertSubscription{}, err
	}

	if alert.Keywords, err = decodeStrings(keywords); err != nil {
		return model.AlertSubscription{}, err
	}
	if alert.Locations, err = decodeStrings(locations); err != nil {
		return model.AlertSubscription{}, err
	}
	rawTypes, err := decodeStrings(jobTypes)
	if err != nil {
		return model.AlertSubscription{}, err
	}
	for _, t := range rawTypes {
		alert.JobTypes = append(alert.JobTypes, model.JobType(t))
	}
	rawLevels, err := decodeStrings(levels)
	if err != nil {
		return model.AlertSubscription{}, err
	}
	for _, l := range rawLevels {
		alert.ExperienceLevels = append(alert.ExperienceLevels, model.ExperienceLevel(l))
	}
	if alert.Categories, err = decodeStrings(categories); err != nil {
		return model.AlertSubscription{}, err
	}
	rawChannels, err := decodeStrings(channels)
	if err != nil {
		return model.AlertSubscription{}, err
	}
	for _, c := range rawChannels {
		alert.Channels = append(alert.Channels, model.Channel(c))
	}

	if salaryMin.Valid {
		alert.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		alert.SalaryMax = &salaryMax.Float64
	}
	if isRemote.Valid {
		alert.IsRemote = &isRemote.Bool
	}
	alert.Frequency = model.Frequency(frequency)

	return alert, nil
}

// UpsertMatch writes the (alert, job) score, overwriting any previous match
// for the pair.
func (s *Store) UpsertMatch(ctx context.Context, m model.AlertMatch) error {
	keywords, err := encodeStrings(m.MatchedKeywords)
	if err != nil {
		return err
	}

	query, args, err := sq.Replace("alert_matches").
		Columns("alert_id", "job_id", "score", "matched_keywords", "sent_at").
		Values(m.AlertID, m.JobID, m.Score, keywords, m.SentAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert match query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match %s/%s: %w", m.AlertID, m.JobID, err)
	}
	return nil
}

// ListUnsentMatches returns undispatched matches for alerts of the given
// frequency.
func (s *Store) ListUnsentMatches(ctx context.Context, freq model.Frequency) ([]model.AlertMatch, error) {
	query, args, err := sq.Select("m.alert_id", "m.job_id", "m.score", "m.matched_keywords", "m.sent_at").
		From("alert_matches m").
		Join("job_alerts a ON a.id = m.alert_id").
		Where(sq.Eq{"m.sent_at": nil, "a.frequency": string(freq)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list unsent matches query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unsent matches: %w", err)
	}
	defer rows.Close()

	var matches []model.AlertMatch
	for rows.Next() {
		var (
			m        model.AlertMatch
			keywords sql.NullString
			sentAt   sql.NullTime
		)
		if err := rows.Scan(&m.AlertID, &m.JobID, &m.Score, &keywords, &sentAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if m.MatchedKeywords, err = decodeStrings(keywords); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			m.SentAt = &sentAt.Time
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListMatchesForJob returns every recorded match for one job, best first.
func (s *Store) ListMatchesForJob(ctx context.Context, jobID string) ([]model.AlertMatch, error) {
	query, args, err := sq.Select("alert_id", "job_id", "score", "matched_keywords", "sent_at").
		From("alert_matches").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("score DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var matches []model.AlertMatch
	for rows.Next() {
		var (
			m        model.AlertMatch
			keywords sql.NullString
			sentAt   sql.NullTime
		)
		if err := rows.Scan(&m.AlertID, &m.JobID, &m.Score, &keywords, &sentAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if m.MatchedKeywords, err = decodeStrings(keywords); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			m.SentAt = &sentAt.Time
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// MarkMatchSent stamps the match's sent_at.
func (s *Store) MarkMatchSent(ctx context.Context, alertID, jobID string, at time.Time) error {
	query, args, err := sq.Update("alert_matches").
		Set("sent_at", at).
		Where(sq.Eq{"alert_id": alertID, "job_id": jobID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark match sent query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark match sent %s/%s: %w", alertID, jobID, err)
	}
	return nil
}

func jobTypesToStrings(types []model.JobType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func levelsToStrings(levels []model.ExperienceLevel) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

func channelsToStrings(channels []model.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}
