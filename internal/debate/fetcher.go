package debate

import (
	"context"
	"sync"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Gateway is the single outbound operation the pipeline depends on: one
// model call with a hard deadline, resolving to exactly one response.
type Gateway interface {
	Complete(ctx context.Context, model, prompt string) models.ModelResponse
}

// Fetcher queries every roster model in parallel with the user prompt.
type Fetcher struct {
	gw Gateway
}

// NewFetcher creates a Fetcher backed by the given gateway.
func NewFetcher(gw Gateway) *Fetcher {
	return &Fetcher{gw: gw}
}

// Fetch issues one concurrent call per roster model and returns once
// every call has resolved. The result holds exactly one entry per
// requested model; a timeout or transport failure for one model is
// recorded on its entry and never disturbs the others.
func (f *Fetcher) Fetch(ctx context.Context, prompt string, roster []string, emit func(Event)) models.ResponseSet {
	results := make([]models.ModelResponse, len(roster))

	var wg sync.WaitGroup
	for i, model := range roster {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			// Each goroutine writes only its own slot; the WaitGroup is
			// the stage barrier.
			results[i] = f.gw.Complete(ctx, model, prompt)
			if emit != nil {
				emit(Event{
					Type:    EventModelResolved,
					Stage:   models.StageFetching,
					Model:   model,
					OK:      results[i].OK,
					Elapsed: results[i].Elapsed,
				})
			}
		}(i, model)
	}
	wg.Wait()

	// Key by the roster entry, not the echoed identifier, so a backend
	// that mangles the model field cannot collapse entries.
	out := make(models.ResponseSet, len(roster))
	for i, model := range roster {
		out[model] = results[i]
	}
	return out
}
