// Package scrape turns job-board HTML into candidate jobs. Each adapter owns
// one source; extraction runs through ordered selector chains so minor markup
// changes degrade gracefully instead of breaking the source.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aguntuk/jobora/internal/model"
	"github.com/aguntuk/jobora/internal/textutil"
)

// Adapter fetches and normalizes the postings of a single source.
type Adapter interface {
	Name() string
	Scrape(ctx context.Context) ([]model.CandidateJob, error)
}

// SiteAdapter scrapes one HTML job board using its registered rules.
type SiteAdapter struct {
	name    string
	baseURL string
	rules   Rules
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewSiteAdapter wires an adapter for the named source.
func NewSiteAdapter(name, baseURL string, rules Rules, fetcher *Fetcher, logger *slog.Logger) *SiteAdapter {
	return &SiteAdapter{
		name:    name,
		baseURL: baseURL,
		rules:   rules,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Name identifies the source in outcomes and logs.
func (a *SiteAdapter) Name() string {
	return a.name
}

// Scrape fetches the board page and extracts every fragment that yields a
// title. Fragments without one are skipped, not errors.
func (a *SiteAdapter) Scrape(ctx context.Context) ([]model.CandidateJob, error) {
	doc, err := a.fetcher.FetchDocument(ctx, a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", a.name, err)
	}

	listings := a.rules.Listing.Find(doc.Selection)
	if listings == nil {
		a.logger.Warn("no listings found", "source", a.name)
		return nil, nil
	}

	var jobs []model.CandidateJob
	skipped := 0
	listings.Each(func(_ int, fragment *goquery.Selection) {
		job, ok := a.extract(fragment)
		if !ok {
			skipped++
			return
		}
		jobs = append(jobs, job)
	})

	a.logger.Info("scraped source",
		"source", a.name,
		"jobs", len(jobs),
		"skipped", skipped,
	)
	return jobs, nil
}

// extract maps one listing fragment through the text heuristics into a
// candidate job. Returns false when the fragment has no title.
func (a *SiteAdapter) extract(fragment *goquery.Selection) (model.CandidateJob, bool) {
	title := a.rules.Title.Text(fragment)
	if title == "" {
		return model.CandidateJob{}, false
	}

	description := a.rules.Description.Text(fragment)
	salaryText := a.rules.Salary.Text(fragment)
	typeText := a.rules.JobType.Text(fragment)

	job := model.NewCandidateJob()
	job.Title = title
	job.Company = a.rules.Company.Text(fragment)
	job.Location = a.rules.Location.Text(fragment)
	job.Salary = textutil.ParseSalary(salaryText)
	job.JobType = textutil.InferJobType(title+" "+typeText, description)
	job.Description = description
	job.Requirements = a.rules.Requirements.Texts(fragment)
	job.Source = a.name
	job.SourceURL = a.resolveURL(a.rules.Link.Attr(fragment, "href"))
	job.PostedAt = textutil.ParseDate(a.rules.PostedDate.Text(fragment))
	return job, true
}

// resolveURL makes fragment hrefs absolute against the board URL.
func (a *SiteAdapter) resolveURL(href string) string {
	if href == "" {
		return a.baseURL
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(a.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
