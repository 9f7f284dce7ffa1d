package enrich

import (
	"strings"

	"github.com/aguntuk/jobora/internal/model"
)

// CategoryVocabulary is the fixed set of categories a job may be classified
// into. A completion reply outside this set is discarded.
var CategoryVocabulary = []string{
	"Technology",
	"Engineering",
	"Data",
	"Design",
	"Marketing",
	"Sales",
	"Finance",
	"Healthcare",
	"Education",
	"Operations",
	"Human Resources",
	"Customer Support",
	"Legal",
	"General",
}

const defaultCategory = "General"

// inVocabulary reports whether category is one of the allowed values
// (case-insensitive), returning the canonical spelling.
func inVocabulary(category string) (string, bool) {
	for _, v := range CategoryVocabulary {
		if strings.EqualFold(v, strings.TrimSpace(category)) {
			return v, true
		}
	}
	return "", false
}

// categoryKeywords drives the static classification fallback used when the
// completion gateway is unavailable or returns an unusable reply.
var categoryKeywords = []struct {
	category string
	terms    []string
}{
	{"Technology", []string{"software", "developer", "engineer", "devops", "backend", "frontend", "cloud", "programmer"}},
	{"Data", []string{"data", "analytics", "machine learning", "scientist"}},
	{"Design", []string{"designer", "ux", "ui", "graphic"}},
	{"Marketing", []string{"marketing", "seo", "content", "brand"}},
	{"Sales", []string{"sales", "account executive", "business development"}},
	{"Finance", []string{"finance", "accountant", "accounting", "auditor", "analyst"}},
	{"Healthcare", []string{"nurse", "doctor", "medical", "health"}},
	{"Education", []string{"teacher", "tutor", "instructor", "professor"}},
	{"Human Resources", []string{"recruiter", "human resources", "talent"}},
	{"Customer Support", []string{"support", "customer service", "helpdesk"}},
	{"Legal", []string{"lawyer", "legal", "paralegal", "counsel"}},
}

// fallbackCategory classifies by keyword lookup over title and description.
func fallbackCategory(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, group := range categoryKeywords {
		for _, term := range group.terms {
			if strings.Contains(text, term) {
				return group.category
			}
		}
	}
	return defaultCategory
}

// fraudTerms are phrases that reliably indicate scam postings. Each hit adds
// a fixed amount to the fallback fraud score.
var fraudTerms = []string{
	"registration fee",
	"processing fee",
	"training fee",
	"pay upfront",
	"wire transfer",
	"western union",
	"no experience necessary",
	"unlimited earning",
	"earn money fast",
	"quick money",
	"work from home and earn",
	"send your bank details",
}

const fraudTermWeight = 25

// fallbackFraud is the deterministic fraud heuristic: red-flag phrase hits
// plus a sanity check on the salary range.
func fallbackFraud(job model.JobRecord) fraudAssessment {
	text := strings.ToLower(job.Title + " " + job.Company + " " + job.Description)

	var assessment fraudAssessment
	for _, term := range fraudTerms {
		if strings.Contains(text, term) {
			assessment.Score += fraudTermWeight
			assessment.RedFlags = append(assessment.RedFlags, term)
		}
	}

	if job.Salary.Max != nil && job.Salary.Period == model.SalaryYearly && *job.Salary.Max > 5_000_000 {
		assessment.Score += fraudTermWeight
		assessment.RedFlags = append(assessment.RedFlags, "implausible salary")
	}

	if assessment.Score > 100 {
		assessment.Score = 100
	}
	switch {
	case assessment.Score > 70:
		assessment.Risk = "high"
	case assessment.Score > 30:
		assessment.Risk = "medium"
	default:
		assessment.Risk = "low"
	}
	return assessment
}
