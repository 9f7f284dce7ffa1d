package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aguntuk/jobora/internal/gateway"
	"github.com/aguntuk/jobora/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeJobStore is an in-memory JobStore.
type fakeJobStore struct {
	jobs []model.JobRecord
}

func (s *fakeJobStore) ListJobs(_ context.Context) ([]model.JobRecord, error) {
	return append([]model.JobRecord(nil), s.jobs...), nil
}

func (s *fakeJobStore) GetJob(_ context.Context, id string) (model.JobRecord, error) {
	for _, j := range s.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return model.JobRecord{}, fmt.Errorf("job %s not found", id)
}

func (s *fakeJobStore) InsertJobs(_ context.Context, jobs []model.JobRecord) error {
	s.jobs = append(s.jobs, jobs...)
	return nil
}

func (s *fakeJobStore) UpdateJob(_ context.Context, job model.JobRecord) error {
	for i, j := range s.jobs {
		if j.ID == job.ID {
			s.jobs[i] = job
			return nil
		}
	}
	return fmt.Errorf("job %s not found", job.ID)
}

// scriptedCompleter routes each prompt to a per-step reply function.
type scriptedCompleter struct {
	calls    int
	category func() (string, error)
	skills   func() (string, error)
	fraud    func() (string, error)
}

func (c *scriptedCompleter) Complete(_ context.Context, req gateway.Request) (string, error) {
	c.calls++
	prompt := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.Contains(prompt, "Classify"):
		return c.category()
	case strings.Contains(prompt, "Extract"):
		return c.skills()
	case strings.Contains(prompt, "fraudulent"):
		return c.fraud()
	}
	return "", fmt.Errorf("unexpected prompt: %s", prompt)
}

func happyCompleter(fraudScore int) *scriptedCompleter {
	return &scriptedCompleter{
		category: func() (string, error) { return `{"category": "Technology"}`, nil },
		skills:   func() (string, error) { return `["Go", "SQL"]`, nil },
		fraud: func() (string, error) {
			return fmt.Sprintf(`{"score": %d, "risk": "low", "red_flags": []}`, fraudScore), nil
		},
	}
}

func candidate(title, company string) model.CandidateJob {
	c := model.NewCandidateJob()
	c.Title = title
	c.Company = company
	c.Description = "Build and maintain services."
	c.Source = "testboard"
	return c
}

func TestProcess_AcceptsAndEnriches(t *testing.T) {
	store := &fakeJobStore{}
	p := New(happyCompleter(5), store, nil, Config{}, discardLogger())

	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Senior Go Engineer", "Acme"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Persisted != 1 || res.Accepted != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	job := store.jobs[0]
	if job.Category != "Technology" {
		t.Errorf("unexpected category: %q", job.Category)
	}
	if len(job.SkillsRequired) != 2 || job.SkillsRequired[0] != "Go" {
		t.Errorf("unexpected skills: %v", job.SkillsRequired)
	}
	if job.ExperienceLevel != model.ExperienceSenior {
		t.Errorf("unexpected experience level: %s", job.ExperienceLevel)
	}
	if job.FraudScore != 5 {
		t.Errorf("unexpected fraud score: %d", job.FraudScore)
	}
	if job.ID == "" || job.CreatedAt.IsZero() {
		t.Error("missing identity or timestamps")
	}
}

func TestProcess_RejectsMissingTitleOrCompany(t *testing.T) {
	store := &fakeJobStore{}
	p := New(happyCompleter(0), store, nil, Config{}, discardLogger())

	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("", "Acme"),
		candidate("Engineer", ""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Invalid != 2 || res.Persisted != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcess_SuppressesDuplicatesCaseInsensitive(t *testing.T) {
	store := &fakeJobStore{}
	p := New(happyCompleter(0), store, nil, Config{}, discardLogger())

	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Go Engineer", "Acme"),
		candidate("GO ENGINEER", "ACME"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Persisted != 1 || res.Duplicates != 1 {
		t.Fatalf("expected 1 persisted and 1 duplicate, got %+v", res)
	}
	if store.jobs[0].Title != "Go Engineer" {
		t.Fatalf("expected the first candidate to win, got %q", store.jobs[0].Title)
	}
}

func TestProcess_SuppressesDuplicatesAgainstExistingRecords(t *testing.T) {
	store := &fakeJobStore{jobs: []model.JobRecord{
		{ID: "existing", Title: "go engineer", Company: "acme"},
	}}
	p := New(happyCompleter(0), store, nil, Config{}, discardLogger())

	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Go Engineer", "Acme"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duplicates != 1 || res.Persisted != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcess_FraudulentCandidateNeverPersisted(t *testing.T) {
	store := &fakeJobStore{}
	p := New(happyCompleter(85), store, nil, Config{}, discardLogger())

	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Earn Fast", "Shady Co"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FraudRejected != 1 {
		t.Fatalf("expected 1 fraud rejection, got %+v", res)
	}
	if len(store.jobs) != 0 {
		t.Fatalf("fraudulent record must not be persisted, got %d records", len(store.jobs))
	}
}

func TestProcess_FraudScoreAtThresholdIsKept(t *testing.T) {
	store := &fakeJobStore{}
	p := New(happyCompleter(70), store, nil, Config{FraudThreshold: 70}, discardLogger())

	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Engineer", "Acme"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Rejection requires score strictly greater than the threshold.
	if res.Persisted != 1 {
		t.Fatalf("expected score == threshold to be kept, got %+v", res)
	}
}

func TestProcess_AIFailuresFallBackWithoutAborting(t *testing.T) {
	store := &fakeJobStore{}
	c := &scriptedCompleter{
		category: func() (string, error) { return "", errors.New("boom") },
		skills:   func() (string, error) { return `not json`, nil },
		fraud:    func() (string, error) { return "", errors.New("boom") },
	}
	cand := candidate("Marketing Manager", "Acme")
	cand.Requirements = []string{"copywriting"}

	p := New(c, store, nil, Config{}, discardLogger())
	res, err := p.Process(context.Background(), []model.CandidateJob{cand})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Persisted != 1 {
		t.Fatalf("AI failure must not drop the candidate: %+v", res)
	}

	job := store.jobs[0]
	if job.Category != "Marketing" {
		t.Errorf("expected fallback category Marketing, got %q", job.Category)
	}
	if len(job.SkillsRequired) != 1 || job.SkillsRequired[0] != "copywriting" {
		t.Errorf("expected existing skills kept, got %v", job.SkillsRequired)
	}
}

func TestProcess_OutOfVocabularyCategoryDiscarded(t *testing.T) {
	store := &fakeJobStore{}
	c := happyCompleter(0)
	c.category = func() (string, error) { return `{"category": "Underwater Basket Weaving"}`, nil }

	p := New(c, store, nil, Config{}, discardLogger())
	_, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Go Developer", "Acme"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.jobs[0].Category; got != "Technology" {
		t.Fatalf("expected fallback category, got %q", got)
	}
}

func TestProcess_SkillsTruncatedToCap(t *testing.T) {
	store := &fakeJobStore{}
	c := happyCompleter(0)
	c.skills = func() (string, error) {
		var names []string
		for i := 0; i < 20; i++ {
			names = append(names, fmt.Sprintf("%q", fmt.Sprintf("skill-%d", i)))
		}
		return "[" + strings.Join(names, ",") + "]", nil
	}

	p := New(c, store, nil, Config{}, discardLogger())
	if _, err := p.Process(context.Background(), []model.CandidateJob{candidate("Engineer", "Acme")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(store.jobs[0].SkillsRequired); got != 15 {
		t.Fatalf("expected 15 skills, got %d", got)
	}
}

func TestProcess_CircuitOpenSkipsRemainingAICalls(t *testing.T) {
	store := &fakeJobStore{}
	c := &scriptedCompleter{
		category: func() (string, error) { return "", gateway.ErrUnavailable },
		skills:   func() (string, error) { return "", gateway.ErrUnavailable },
		fraud:    func() (string, error) { return "", gateway.ErrUnavailable },
	}

	p := New(c, store, nil, Config{}, discardLogger())
	res, err := p.Process(context.Background(), []model.CandidateJob{
		candidate("Engineer A", "Acme"),
		candidate("Engineer B", "Beta"),
		candidate("Engineer C", "Gamma"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Persisted != 3 {
		t.Fatalf("expected all candidates persisted on fallbacks, got %+v", res)
	}
	// The first unavailable reply latches; no calls for later candidates.
	if c.calls != 1 {
		t.Fatalf("expected 1 gateway call before latching, got %d", c.calls)
	}
}

func TestProcess_NilCompleterRunsFallbacksOnly(t *testing.T) {
	store := &fakeJobStore{}
	cand := candidate("Registration Fee Collector", "Scam Inc")
	cand.Description = "Pay a registration fee via wire transfer. No experience necessary. Quick money."

	p := New(nil, store, nil, Config{}, discardLogger())
	res, err := p.Process(context.Background(), []model.CandidateJob{cand})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Four red-flag phrases at 25 points each: rejected by the fallback alone.
	if res.FraudRejected != 1 || len(store.jobs) != 0 {
		t.Fatalf("expected fallback fraud rejection, got %+v", res)
	}
}

func TestStripFences(t *testing.T) {
	raw := "```json\n{\"category\": \"Legal\"}\n```"
	if got := stripFences(raw); got != `{"category": "Legal"}` {
		t.Fatalf("got %q", got)
	}
	if got := stripFences(`{"a":1}`); got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}
