package models

import (
	"sort"
	"time"
)

// Stage identifies one phase of a pipeline run.
type Stage string

const (
	// StageFetching is the parallel initial query stage.
	StageFetching Stage = "fetching"
	// StageCritiquing is a critic discrepancy-extraction pass.
	StageCritiquing Stage = "critiquing"
	// StageDebating is a targeted re-query round.
	StageDebating Stage = "debating"
	// StageSynthesizing is the final merge stage.
	StageSynthesizing Stage = "synthesizing"
	// StageDone is the terminal success state.
	StageDone Stage = "done"
	// StageFailed is the terminal failure state.
	StageFailed Stage = "failed"
)

// Valid returns true if the stage is a known value.
func (s Stage) Valid() bool {
	switch s {
	case StageFetching, StageCritiquing, StageDebating, StageSynthesizing, StageDone, StageFailed:
		return true
	default:
		return false
	}
}

// SynthesisMode distinguishes how the final answer was produced.
type SynthesisMode string

const (
	// SynthesisConsensus merges converged answers into one.
	SynthesisConsensus SynthesisMode = "consensus"
	// SynthesisDivergence presents unresolved disagreements transparently.
	SynthesisDivergence SynthesisMode = "divergence"
)

// GateDecision records how the pipeline routed after a critic pass.
type GateDecision struct {
	// Gate is the gate number (0 after the initial critic pass).
	Gate int `json:"gate"`
	// Route names the chosen path, e.g. "fast_path_consensus".
	Route string `json:"route"`
	// Reason explains the decision.
	Reason string `json:"reason"`
}

// StageTiming records how long one stage occurrence took.
type StageTiming struct {
	// Stage is the phase that was timed.
	Stage Stage `json:"stage"`
	// Round is the debate/critic round number, 0 for the initial pass.
	Round int `json:"round"`
	// Elapsed is the wall-clock duration of the stage.
	Elapsed time.Duration `json:"elapsed"`
}

// Run is the complete artifact of one pipeline execution, consumed by
// the run-log collaborator. All fields are owned by a single run; nothing
// is shared across runs.
type Run struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`
	// Prompt is the original user question.
	Prompt string `json:"prompt"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run reached a terminal state.
	FinishedAt time.Time `json:"finished_at"`
	// Status is the terminal stage: StageDone or StageFailed.
	Status Stage `json:"status"`
	// Initial holds the first-pass responses, one per roster model.
	Initial ResponseSet `json:"initial"`
	// CriticPasses holds each critic evaluation in order (pass 0 first).
	CriticPasses []Evaluation `json:"critic_passes"`
	// Gates holds the routing decision taken after each critic pass.
	Gates []GateDecision `json:"gates"`
	// DebateRounds holds the post-debate responses per round, in order.
	DebateRounds []ResponseSet `json:"debate_rounds,omitempty"`
	// Timings holds per-stage wall-clock durations.
	Timings []StageTiming `json:"timings"`
	// FinalAnswer is the synthesized answer. Empty on failure.
	FinalAnswer string `json:"final_answer,omitempty"`
	// Mode is how the final answer was synthesized.
	Mode SynthesisMode `json:"mode,omitempty"`
	// FailedStage is the stage at which a failed run terminated.
	FailedStage Stage `json:"failed_stage,omitempty"`
	// FailureReason describes why a failed run terminated.
	FailureReason string `json:"failure_reason,omitempty"`
}

// LastResponses returns the most recent complete response set: the final
// debate round if any rounds ran, otherwise the initial set.
func (r *Run) LastResponses() ResponseSet {
	if n := len(r.DebateRounds); n > 0 {
		return r.DebateRounds[n-1]
	}
	return r.Initial
}

// Duration returns the total wall-clock time of the run.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func sortedKeys(rs ResponseSet) []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
