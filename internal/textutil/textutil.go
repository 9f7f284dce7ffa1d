// Package textutil holds the pure text heuristics used to normalize scraped
// postings: salary and date parsing plus keyword inference for experience
// level, job type and work arrangement. None of these functions fail; bad
// input degrades to a sensible default.
package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aguntuk/jobora/internal/model"
)

var (
	numberExpr   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	relativeExpr = regexp.MustCompile(`(?i)(\d+)\s*(day|week|month)s?\s*ago`)
)

const lakh = 100_000

// ParseSalary extracts a salary range from free text. The first numeric token
// becomes the minimum, the second the maximum; a single number fills both.
// A "lakh" mention multiplies both figures by 100,000. Absent numbers leave
// Min/Max nil.
func ParseSalary(text string) model.Salary {
	sal := model.Salary{
		Currency: inferCurrency(text),
		Period:   inferPeriod(text),
	}

	tokens := numberExpr.FindAllString(text, 2)
	if len(tokens) == 0 {
		return sal
	}

	multiplier := 1.0
	if strings.Contains(strings.ToLower(text), "lakh") {
		multiplier = lakh
	}

	if v, ok := parseNumber(tokens[0]); ok {
		v *= multiplier
		sal.Min = &v
	}
	if len(tokens) > 1 {
		if v, ok := parseNumber(tokens[1]); ok {
			v *= multiplier
			sal.Max = &v
		}
	} else if sal.Min != nil {
		v := *sal.Min
		sal.Max = &v
	}

	return sal
}

func parseNumber(token string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func inferCurrency(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "₹"), strings.Contains(lower, "inr"),
		strings.Contains(lower, "rs."), strings.Contains(lower, "lakh"):
		return "INR"
	case strings.Contains(text, "€"), strings.Contains(lower, "eur"):
		return "EUR"
	case strings.Contains(text, "£"), strings.Contains(lower, "gbp"):
		return "GBP"
	default:
		return "USD"
	}
}

func inferPeriod(text string) model.SalaryPeriod {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yearly"), strings.Contains(lower, "annual"),
		strings.Contains(lower, "year"):
		return model.SalaryYearly
	case strings.Contains(lower, "hourly"), strings.Contains(lower, "hour"):
		return model.SalaryHourly
	default:
		return model.SalaryMonthly
	}
}

// ParseDate resolves relative phrases ("today", "yesterday", "3 days ago")
// and common absolute formats. It never fails: unrecognized input yields the
// current time.
func ParseDate(text string) time.Time {
	now := time.Now()
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(lower, "today"), strings.Contains(lower, "just now"):
		return now
	case strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1)
	}

	if m := relativeExpr.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "day":
			return now.AddDate(0, 0, -n)
		case "week":
			return now.AddDate(0, 0, -7*n)
		case "month":
			return now.AddDate(0, -n, 0)
		}
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"Jan 2, 2006",
		"2 Jan 2006",
		"January 2, 2006",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, strings.TrimSpace(text)); err == nil {
			return t
		}
	}

	return now
}

// Keyword groups checked in precedence order: entry signals win over senior,
// senior over executive. First match wins; default is mid.
var (
	entrySignals     = []string{"intern", "trainee", "fresh graduate", "entry level", "entry-level", "junior"}
	seniorSignals    = []string{"senior", "lead", "manager", "director", "principal", "staff"}
	executiveSignals = []string{"vp", "vice president", "chief", "head of", "cto", "ceo"}
)

// InferExperienceLevel guesses seniority from title and description.
func InferExperienceLevel(title, description string) model.ExperienceLevel {
	text := strings.ToLower(title + " " + description)
	if containsAny(text, entrySignals) {
		return model.ExperienceEntry
	}
	if containsAny(text, seniorSignals) {
		return model.ExperienceSenior
	}
	if containsAny(text, executiveSignals) {
		return model.ExperienceExecutive
	}
	return model.ExperienceMid
}

// InferJobType guesses the employment arrangement. Precedence: part-time >
// contract > internship > freelance; default full-time.
func InferJobType(title, description string) model.JobType {
	text := strings.ToLower(title + " " + description)
	switch {
	case strings.Contains(text, "part-time"), strings.Contains(text, "part time"):
		return model.JobTypePartTime
	case strings.Contains(text, "contract"):
		return model.JobTypeContract
	case strings.Contains(text, "intern"):
		return model.JobTypeInternship
	case strings.Contains(text, "freelance"):
		return model.JobTypeFreelance
	default:
		return model.JobTypeFullTime
	}
}

// InferRemote reports whether the posting reads as a remote role.
func InferRemote(title, description string) bool {
	text := strings.ToLower(title + " " + description)
	return containsAny(text, []string{"remote", "work from home", "wfh", "work from anywhere"})
}

// InferHybrid reports whether the posting reads as a hybrid role.
func InferHybrid(title, description string) bool {
	return strings.Contains(strings.ToLower(title+" "+description), "hybrid")
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var htmlTagExpr = regexp.MustCompile(`<[^>]*>`)

// StripHTML converts an HTML fragment to collapsed plain text.
func StripHTML(content string) string {
	plain := htmlTagExpr.ReplaceAllString(content, " ")
	return strings.Join(strings.Fields(plain), " ")
}
