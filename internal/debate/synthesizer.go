package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// SynthesisInput is the response set the synthesizer is allowed to see.
// It can only be built through NewSynthesisInput from the surviving
// responses of the final completed round, which keeps earlier-round
// responses out of synthesis by construction.
type SynthesisInput struct {
	responses models.ResponseSet
}

// NewSynthesisInput builds the synthesizer's input from the final
// round's responses, dropping any entry without usable text.
func NewSynthesisInput(final models.ResponseSet) SynthesisInput {
	return SynthesisInput{responses: final.Succeeded()}
}

// Len returns how many model answers will reach the synthesizer.
func (in SynthesisInput) Len() int {
	return len(in.responses)
}

// Synthesizer merges the surviving post-debate answers into one
// authoritative response using a designated strong model.
type Synthesizer struct {
	gw    Gateway
	model string
}

// NewSynthesizer creates a Synthesizer using the given strong model.
func NewSynthesizer(gw Gateway, model string) *Synthesizer {
	return &Synthesizer{gw: gw, model: model}
}

// Consensus produces the merged "gold standard" answer. Any failure is
// pipeline-fatal: there is no fallback answer.
func (s *Synthesizer) Consensus(ctx context.Context, prompt string, in SynthesisInput) (string, time.Duration, error) {
	return s.complete(ctx, buildConsensusPrompt(prompt, in))
}

// Divergence produces a transparent, trade-off-aware answer when the
// models could not converge. eval carries the remaining discrepancies.
func (s *Synthesizer) Divergence(ctx context.Context, prompt string, in SynthesisInput, eval *models.Evaluation) (string, time.Duration, error) {
	return s.complete(ctx, buildDivergencePrompt(prompt, in, eval))
}

// Model returns the synthesizer's model identifier.
func (s *Synthesizer) Model() string {
	return s.model
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, time.Duration, error) {
	resp := s.gw.Complete(ctx, s.model, prompt)
	if !resp.OK {
		return "", resp.Elapsed, fmt.Errorf("synthesis call failed: %s", resp.Error)
	}
	if resp.Text == "" {
		return "", resp.Elapsed, fmt.Errorf("synthesis returned an empty answer")
	}
	return resp.Text, resp.Elapsed, nil
}
