package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aguntuk/jobora/internal/model"
)

var _ model.JobStore = (*Store)(nil)

var jobColumns = []string{
	"id", "title", "company", "location",
	"salary_min", "salary_max", "currency", "salary_period",
	"job_type", "description", "requirements", "source", "source_url",
	"posted_at", "category", "industry", "skills_required", "skills_preferred",
	"experience_level", "is_remote", "is_hybrid",
	"fraud_score", "fraud_indicators", "created_at", "updated_at",
}

// ListJobs returns every persisted job record, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]model.JobRecord, error) {
	query, args, err := sq.Select(jobColumns...).
		From("jobs").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list jobs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetJob returns the record with the given id.
func (s *Store) GetJob(ctx context.Context, id string) (model.JobRecord, error) {
	query, args, err := sq.Select(jobColumns...).
		From("jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("build get job query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return model.JobRecord{}, fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// InsertJobs writes the batch inside one transaction: all rows commit or
// none do.
func (s *Store) InsertJobs(ctx context.Context, jobs []model.JobRecord) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert jobs: %w", err)
	}
	defer tx.Rollback()

	for _, job := range jobs {
		values, err := jobValues(job)
		if err != nil {
			return err
		}
		query, args, err := sq.Insert("jobs").
			Columns(jobColumns...).
			Values(values...).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert job query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert jobs: %w", err)
	}
	return nil
}

// UpdateJob overwrites the record, bumping updated_at.
func (s *Store) UpdateJob(ctx context.Context, job model.JobRecord) error {
	requirements, err := encodeStrings(job.Requirements)
	if err != nil {
		return err
	}
	skillsReq, err := encodeStrings(job.SkillsRequired)
	if err != nil {
		return err
	}
	skillsPref, err := encodeStrings(job.SkillsPreferred)
	if err != nil {
		return err
	}
	indicators, err := encodeStrings(job.FraudIndicators)
	if err != nil {
		return err
	}

	query, args, err := sq.Update("jobs").
		Set("title", job.Title).
		Set("company", job.Company).
		Set("location", job.Location).
		Set("salary_min", job.Salary.Min).
		Set("salary_max", job.Salary.Max).
		Set("currency", job.Salary.Currency).
		Set("salary_period", string(job.Salary.Period)).
		Set("job_type", string(job.JobType)).
		Set("description", job.Description).
		Set("requirements", requirements).
		Set("category", job.Category).
		Set("industry", job.Industry).
		Set("skills_required", skillsReq).
		Set("skills_preferred", skillsPref).
		Set("experience_level", string(job.ExperienceLevel)).
		Set("is_remote", job.IsRemote).
		Set("is_hybrid", job.IsHybrid).
		Set("fraud_score", job.FraudScore).
		Set("fraud_indicators", indicators).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": job.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update job query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

func jobValues(job model.JobRecord) ([]any, error) {
	requirements, err := encodeStrings(job.Requirements)
	if err != nil {
		return nil, err
	}
	skillsReq, err := encodeStrings(job.SkillsRequired)
	if err != nil {
		return nil, err
	}
	skillsPref, err := encodeStrings(job.SkillsPreferred)
	if err != nil {
		return nil, err
	}
	indicators, err := encodeStrings(job.FraudIndicators)
	if err != nil {
		return nil, err
	}

	return []any{
		job.ID, job.Title, job.Company, job.Location,
		job.Salary.Min, job.Salary.Max, job.Salary.Currency, string(job.Salary.Period),
		string(job.JobType), job.Description, requirements, job.Source, job.SourceURL,
		job.PostedAt, job.Category, job.Industry, skillsReq, skillsPref,
		string(job.ExperienceLevel), job.IsRemote, job.IsHybrid,
		job.FraudScore, indicators, job.CreatedAt, job.UpdatedAt,
	}, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.JobRecord, error) {
	var (
		job                                        model.JobRecord
		salaryMin, salaryMax                       sql.NullFloat64
		requirements, skillsReq, skillsPref, flags sql.NullString
		location, currency, period, jobType        sql.NullString
		description, source, sourceURL             sql.NullString
		category, industry, experience             sql.NullString
		postedAt                                   sql.NullTime
	)

	err := row.Scan(
		&job.ID, &job.Title, &job.Company, &location,
		&salaryMin, &salaryMax, &currency, &period,
		&jobType, &description, &requirements, &source, &sourceURL,
		&postedAt, &category, &industry, &skillsReq, &skillsPref,
		&experience, &job.IsRemote, &job.IsHybrid,
		&job.FraudScore, &flags, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return model.JobRecord{}, err
	}

	job.Location = location.String
	if salaryMin.Valid {
		job.Salary.Min = &salaryMin.Float64
	}
	if salaryMax.Valid {
		job.Salary.Max = &salaryMax.Float64
	}
	job.Salary.Currency = currency.String
	job.Salary.Period = model.SalaryPeriod(period.String)
	job.JobType = model.JobType(jobType.String)
	job.Description = description.String
	job.Source = source.String
	job.SourceURL = sourceURL.String
	if postedAt.Valid {
		job.PostedAt = postedAt.Time
	}
	job.Category = category.String
	job.Industry = industry.String
	job.ExperienceLevel = model.ExperienceLevel(experience.String)

	if job.Requirements, err = decodeStrings(requirements); err != nil {
		return model.JobRecord{}, err
	}
	if job.SkillsRequired, err = decodeStrings(skillsReq); err != nil {
		return model.JobRecord{}, err
	}
	if job.SkillsPreferred, err = decodeStrings(skillsPref); err != nil {
		return model.JobRecord{}, err
	}
	if job.FraudIndicators, err = decodeStrings(flags); err != nil {
		return model.JobRecord{}, err
	}

	return job, nil
}
