package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/aguntuk/jobora/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFetcher(retries int) *Fetcher {
	return NewFetcher(
		&http.Client{Timeout: 5 * time.Second},
		retries,
		time.Millisecond,
		rate.NewLimiter(rate.Inf, 1),
		discardLogger(),
	)
}

const boardHTML = `<html><body>
<div class="job-card">
  <h2 class="job-title"><a href="/jobs/1">Senior Go Engineer</a></h2>
  <span class="company-name">Acme Corp</span>
  <span class="job-location">Berlin, Germany</span>
  <span class="salary">€70,000 - €90,000 per year</span>
  <span class="posted-date">2 days ago</span>
  <div class="job-description">Build backend services. Remote friendly.</div>
  <ul class="requirements"><li>Go</li><li>PostgreSQL</li></ul>
</div>
<div class="job-card">
  <span class="company-name">Titleless Inc</span>
</div>
<div class="job-card">
  <h3><a href="https://other.example/2">Data Intern</a></h3>
  <span class="company">Beta Ltd</span>
</div>
</body></html>`

func TestSiteAdapter_ExtractsAndSkips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(boardHTML))
	}))
	defer srv.Close()

	a := NewSiteAdapter("testboard", srv.URL, DefaultRules(), testFetcher(0), discardLogger())
	jobs, err := a.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fragment without a title is skipped.
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	first := jobs[0]
	if first.Title != "Senior Go Engineer" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.Company != "Acme Corp" {
		t.Errorf("unexpected company: %q", first.Company)
	}
	if first.Salary.Min == nil || *first.Salary.Min != 70000 {
		t.Errorf("unexpected salary min: %+v", first.Salary.Min)
	}
	if first.Salary.Period != model.SalaryYearly {
		t.Errorf("unexpected salary period: %s", first.Salary.Period)
	}
	if first.SourceURL != srv.URL+"/jobs/1" {
		t.Errorf("relative URL not resolved: %q", first.SourceURL)
	}
	if len(first.Requirements) != 2 {
		t.Errorf("expected 2 requirements, got %v", first.Requirements)
	}
	if first.CorrelationID == "" {
		t.Error("missing correlation id")
	}

	// Second fragment uses the fallback selectors (h3 a, .company).
	second := jobs[1]
	if second.Title != "Data Intern" {
		t.Errorf("unexpected fallback title: %q", second.Title)
	}
	if second.Company != "Beta Ltd" {
		t.Errorf("unexpected fallback company: %q", second.Company)
	}
	if second.SourceURL != "https://other.example/2" {
		t.Errorf("absolute URL rewritten: %q", second.SourceURL)
	}
	if second.JobType != model.JobTypeInternship {
		t.Errorf("expected internship inference, got %s", second.JobType)
	}
}

func TestFetcher_RetriesWithLinearBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := testFetcher(3)
	if _, err := f.FetchDocument(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetcher_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := testFetcher(2)
	_, err := f.FetchDocument(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 503 {
		t.Fatalf("expected HTTPError 503, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

// stubAdapter returns fixed jobs or a fixed error.
type stubAdapter struct {
	name string
	jobs []model.CandidateJob
	err  error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Scrape(_ context.Context) ([]model.CandidateJob, error) {
	return s.jobs, s.err
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	adapters := []Adapter{
		&stubAdapter{name: "good", jobs: []model.CandidateJob{{Title: "A"}, {Title: "B"}}},
		&stubAdapter{name: "broken", err: errors.New("connection refused")},
		&stubAdapter{name: "empty"},
	}

	outcomes := RunAll(context.Background(), adapters, discardLogger())
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Source != "good" || len(outcomes[0].Jobs) != 2 || outcomes[0].Err != nil {
		t.Errorf("unexpected outcome for good source: %+v", outcomes[0])
	}
	if outcomes[1].Err == nil || len(outcomes[1].Jobs) != 0 {
		t.Errorf("broken source should fail with no jobs: %+v", outcomes[1])
	}
	if outcomes[2].Err != nil {
		t.Errorf("empty source should not error: %+v", outcomes[2])
	}
}

func TestRulesFor_FallsBackToDefaults(t *testing.T) {
	r := RulesFor("unknown-board")
	if len(r.Listing) == 0 || len(r.Title) == 0 {
		t.Fatal("expected default rules for unknown source")
	}
	custom := RulesFor("remotehub")
	if custom.Listing[0] != "tr.job" {
		t.Fatalf("expected remotehub override, got %v", custom.Listing)
	}
}
