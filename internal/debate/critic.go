package debate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Critic extracts the discrepancy set from a round of responses using a
// designated fast model. This is the one load-bearing structured-output
// boundary in the pipeline: everything downstream trusts the evaluation
// it returns, so parsing and validation are strict.
type Critic struct {
	gw    Gateway
	model string
}

// NewCritic creates a Critic that evaluates with the given model.
func NewCritic(gw Gateway, model string) *Critic {
	return &Critic{gw: gw, model: model}
}

// Evaluate issues one critic call over the successful responses and
// returns the validated evaluation. Failed entries in responses are
// excluded before prompting. previous, when non-nil, is the prior pass's
// evaluation and keeps claim identity stable across passes.
//
// Errors are never swallowed: a transport failure, unparseable output
// (ParseError, carrying the raw text), or a shape violation
// (ValidationError) all surface to the caller.
func (c *Critic) Evaluate(ctx context.Context, responses models.ResponseSet, previous *models.Evaluation) (*models.Evaluation, error) {
	succeeded := responses.Succeeded()
	if len(succeeded) == 0 {
		return nil, ErrNoResponses
	}

	prompt := buildCriticPrompt(succeeded, previous)

	resp := c.gw.Complete(ctx, c.model, prompt)
	if !resp.OK {
		return nil, fmt.Errorf("critic call failed: %s", resp.Error)
	}

	eval, err := parseEvaluation(resp.Text)
	if err != nil {
		return nil, err
	}
	if err := validateEvaluation(eval, succeeded); err != nil {
		return nil, err
	}

	normalizeEvaluation(eval)
	return eval, nil
}

// Model returns the critic's model identifier.
func (c *Critic) Model() string {
	return c.model
}

var (
	openFence  = regexp.MustCompile("(?m)^```(?:json)?\\s*\n?")
	closeFence = regexp.MustCompile("(?m)\n?```\\s*$")
)

// stripFences removes surrounding markdown code fences from model
// output. Handles ```json ... ``` and bare ``` ... ```.
func stripFences(text string) string {
	text = openFence.ReplaceAllString(text, "")
	text = closeFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// parseEvaluation decodes critic output into an Evaluation. Any decode
// failure is reported as a ParseError carrying the raw text.
func parseEvaluation(raw string) (*models.Evaluation, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("empty output after stripping code fences")}
	}

	var eval models.Evaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &eval, nil
}

// validateEvaluation rejects - never coerces - an evaluation whose shape
// is wrong: a discrepancy without claim text, or one referencing a model
// absent from the evaluated response set.
func validateEvaluation(eval *models.Evaluation, responses models.ResponseSet) error {
	for _, d := range eval.Discrepancies {
		if strings.TrimSpace(d.Claim) == "" {
			return &ValidationError{}
		}
		for _, m := range d.ModelsWith {
			if _, ok := responses[m]; !ok {
				return &ValidationError{Claim: d.Claim, Model: m}
			}
		}
		for _, m := range d.ModelsMissing {
			if _, ok := responses[m]; !ok {
				return &ValidationError{Claim: d.Claim, Model: m}
			}
		}
	}
	return nil
}

// normalizeEvaluation drops discrepancies every model agrees on (an
// empty missing list means no disagreement), assigns claim IDs to new
// claims, and enforces the consensus flag when nothing is contested.
func normalizeEvaluation(eval *models.Evaluation) {
	kept := eval.Discrepancies[:0]
	for _, d := range eval.Discrepancies {
		if len(d.ModelsMissing) == 0 {
			continue
		}
		if d.ClaimID == "" {
			d.ClaimID = models.ClaimIDFor(d.Claim)
		}
		kept = append(kept, d)
	}
	eval.Discrepancies = kept

	if len(eval.Discrepancies) == 0 {
		eval.ConsensusReached = true
	}
}
