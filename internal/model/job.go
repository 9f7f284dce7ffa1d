package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExperienceLevel buckets a role by seniority.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceExecutive ExperienceLevel = "executive"
)

// JobType is the employment arrangement of a posting.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

// SalaryPeriod is the unit a salary figure is quoted in.
type SalaryPeriod string

const (
	SalaryYearly  SalaryPeriod = "yearly"
	SalaryMonthly SalaryPeriod = "monthly"
	SalaryHourly  SalaryPeriod = "hourly"
)

// Salary is a parsed compensation range. Min/Max are nil when the source
// text carried no usable numbers.
type Salary struct {
	Min      *float64
	Max      *float64
	Currency string
	Period   SalaryPeriod
}

// CandidateJob is a freshly scraped posting before enrichment. It has no
// identity beyond a correlation ID and is discarded after the accept/reject
// decision.
type CandidateJob struct {
	CorrelationID string
	Title         string
	Company       string
	Location      string
	Salary        Salary
	JobType       JobType
	Description   string
	Requirements  []string
	Source        string
	SourceURL     string
	PostedAt      time.Time
}

// NewCandidateJob returns a CandidateJob with a fresh correlation ID.
func NewCandidateJob() CandidateJob {
	return CandidateJob{CorrelationID: uuid.NewString()}
}

// JobRecord is a persisted, enriched, non-fraud posting. Created once by the
// enrichment pipeline on accept; mutated only via UpdateJob; never deleted by
// this subsystem.
type JobRecord struct {
	ID              string
	Title           string
	Company         string
	Location        string
	Salary          Salary
	JobType         JobType
	Description     string
	Requirements    []string
	Source          string
	SourceURL       string
	PostedAt        time.Time
	Category        string
	Industry        string
	SkillsRequired  []string
	SkillsPreferred []string
	ExperienceLevel ExperienceLevel
	IsRemote        bool
	IsHybrid        bool
	FraudScore      int
	FraudIndicators []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsFraud reports whether the record's fraud score exceeds the given
// threshold. Records for which this holds are dropped, never persisted.
func (j JobRecord) IsFraud(threshold int) bool {
	return j.FraudScore > threshold
}

// JobStore persists and lists job records.
type JobStore interface {
	ListJobs(ctx context.Context) ([]JobRecord, error)
	GetJob(ctx context.Context, id string) (JobRecord, error)
	// InsertJobs writes the batch in a single transaction: all rows commit
	// or none do.
	InsertJobs(ctx context.Context, jobs []JobRecord) error
	UpdateJob(ctx context.Context, job JobRecord) error
}
