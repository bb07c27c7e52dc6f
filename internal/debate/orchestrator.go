package debate

import (
	"context"
	"sync"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Orchestrator runs one debate round: it shows each model the claims it
// missed and asks it to reconsider, re-querying all models in parallel.
type Orchestrator struct {
	gw        Gateway
	agreement *AgreementChecker
}

// NewOrchestrator creates an Orchestrator. agreement may be nil to
// disable bare-agreement substitution.
func NewOrchestrator(gw Gateway, agreement *AgreementChecker) *Orchestrator {
	return &Orchestrator{gw: gw, agreement: agreement}
}

// Run re-queries every model present in prior with a targeted prompt
// built from eval and returns the post-debate response set. The result
// never contains a model absent from prior.
//
// Per-model outcomes:
//   - reply succeeded: the reply is used, unless it is a bare agreement
//     and the model's prior response succeeded, in which case the prior
//     text is carried forward.
//   - reply failed, prior succeeded: the prior response stands in.
//   - reply failed, prior failed: the model is omitted entirely.
func (o *Orchestrator) Run(ctx context.Context, prompt string, prior models.ResponseSet, eval *models.Evaluation, emit func(Event)) models.ResponseSet {
	order := prior.Models()
	results := make([]models.ModelResponse, len(order))

	var wg sync.WaitGroup
	for i, model := range order {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			debatePrompt := buildDebatePrompt(prompt, prior[model].Text, eval.MissedBy(model))
			results[i] = o.gw.Complete(ctx, model, debatePrompt)
			if emit != nil {
				emit(Event{
					Type:    EventModelResolved,
					Stage:   models.StageDebating,
					Model:   model,
					OK:      results[i].OK,
					Elapsed: results[i].Elapsed,
				})
			}
		}(i, model)
	}
	wg.Wait()

	out := make(models.ResponseSet, len(order))
	for i, model := range order {
		resp := results[i]
		switch {
		case resp.OK:
			if o.agreement != nil && prior[model].OK && o.agreement.IsAgreement(ctx, resp.Text) {
				// The model stood by its previous answer; keep the
				// substantive text rather than the acknowledgment.
				carried := prior[model]
				carried.Elapsed = resp.Elapsed
				out[model] = carried
			} else {
				out[model] = resp
			}
		case prior[model].OK:
			// Debate call failed; the model's previous answer is still
			// its position.
			out[model] = prior[model]
		default:
			// Failed both rounds: nothing usable, omit the model.
		}
	}
	return out
}
