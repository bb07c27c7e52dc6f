package debate

import (
	"context"
	"sync"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// fakeGateway scripts model responses for tests. Calls are recorded so
// tests can assert on which models were queried and with what prompts.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []fakeCall
	respond func(model, prompt string) models.ModelResponse
}

type fakeCall struct {
	model  string
	prompt string
}

func (f *fakeGateway) Complete(ctx context.Context, model, prompt string) models.ModelResponse {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt})
	fn := f.respond
	f.mu.Unlock()
	return fn(model, prompt)
}

func (f *fakeGateway) callCount(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.model == model {
			n++
		}
	}
	return n
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okResp(model, text string) models.ModelResponse {
	return models.ModelResponse{Model: model, Text: text, OK: true, Elapsed: time.Millisecond}
}

func failResp(model, reason string) models.ModelResponse {
	return models.ModelResponse{Model: model, Error: reason, Elapsed: time.Millisecond}
}
