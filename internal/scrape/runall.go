package scrape

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aguntuk/jobora/internal/model"
)

// Outcome is one adapter's result for a cycle. A failed source carries its
// error and an empty job list; it never affects sibling sources.
type Outcome struct {
	Source string
	Jobs   []model.CandidateJob
	Err    error
}

// RunAll fans out to every adapter concurrently and fans in their outcomes.
// The slice is ordered to match adapters.
func RunAll(ctx context.Context, adapters []Adapter, logger *slog.Logger) []Outcome {
	outcomes := make([]Outcome, len(adapters))

	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			jobs, err := a.Scrape(ctx)
			if err != nil {
				logger.Error("source failed", "source", a.Name(), "error", err)
				outcomes[i] = Outcome{Source: a.Name(), Err: err}
				return
			}
			outcomes[i] = Outcome{Source: a.Name(), Jobs: jobs}
		}(i, a)
	}
	wg.Wait()

	return outcomes
}
