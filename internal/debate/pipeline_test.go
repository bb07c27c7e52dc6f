package debate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

func pipelineConfig() Config {
	return Config{
		Roster:           []string{"m1", "m2"},
		CriticModel:      "critic",
		SynthesizerModel: "synth",
	}
}

// criticJSON builds a critic evaluation with one contested discrepancy
// per claim, each asserted by m2 and missed by m1.
func criticJSON(consensus bool, claims ...string) string {
	eval := models.Evaluation{ConsensusReached: consensus}
	for _, claim := range claims {
		eval.Discrepancies = append(eval.Discrepancies, models.Discrepancy{
			Claim:         claim,
			ModelsWith:    []string{"m2"},
			ModelsMissing: []string{"m1"},
		})
	}
	raw, _ := json.Marshal(eval)
	return string(raw)
}

func TestPipeline_FastPathConsensus(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			return okResp(model, criticJSON(true))
		case "synth":
			return okResp(model, "final answer")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, err := New(gw, pipelineConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Status != models.StageDone {
		t.Errorf("Status = %q, want %q", run.Status, models.StageDone)
	}
	if run.Mode != models.SynthesisConsensus {
		t.Errorf("Mode = %q, want %q", run.Mode, models.SynthesisConsensus)
	}
	if run.FinalAnswer != "final answer" {
		t.Errorf("FinalAnswer = %q, want %q", run.FinalAnswer, "final answer")
	}
	if len(run.DebateRounds) != 0 {
		t.Errorf("fast path ran %d debate rounds, want 0", len(run.DebateRounds))
	}
	if len(run.Gates) != 1 || run.Gates[0].Route != "fast_path_consensus" {
		t.Errorf("Gates = %+v, want a single fast_path_consensus decision", run.Gates)
	}
	// One initial call per roster model, one critic pass, one synthesis.
	if gw.callCount("m1") != 1 || gw.callCount("m2") != 1 {
		t.Error("fast path should not re-query roster models")
	}
	if gw.callCount("critic") != 1 {
		t.Errorf("critic called %d times, want 1", gw.callCount("critic"))
	}
	if gw.callCount("synth") != 1 {
		t.Errorf("synthesizer called %d times, want 1", gw.callCount("synth"))
	}
}

func TestPipeline_ConsensusAfterDebate(t *testing.T) {
	var criticCalls atomic.Int32
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			if criticCalls.Add(1) == 1 {
				return okResp(model, criticJSON(false, "contested claim"))
			}
			return okResp(model, criticJSON(true))
		case "synth":
			return okResp(model, "final answer")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Status != models.StageDone {
		t.Errorf("Status = %q, want %q", run.Status, models.StageDone)
	}
	if run.Mode != models.SynthesisConsensus {
		t.Errorf("Mode = %q, want %q", run.Mode, models.SynthesisConsensus)
	}
	if len(run.DebateRounds) != 1 {
		t.Fatalf("ran %d debate rounds, want 1", len(run.DebateRounds))
	}
	wantRoutes := []string{"proceed_to_debate_1", "consensus_after_debate_1"}
	if len(run.Gates) != len(wantRoutes) {
		t.Fatalf("got %d gates, want %d", len(run.Gates), len(wantRoutes))
	}
	for i, want := range wantRoutes {
		if run.Gates[i].Route != want {
			t.Errorf("Gates[%d].Route = %q, want %q", i, run.Gates[i].Route, want)
		}
	}
	if len(run.CriticPasses) != 2 {
		t.Errorf("recorded %d critic passes, want 2", len(run.CriticPasses))
	}
}

func TestPipeline_CircuitBreaker(t *testing.T) {
	// The discrepancy count does not decrease after the first debate:
	// stop debating and synthesize the divergence.
	var criticCalls atomic.Int32
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			criticCalls.Add(1)
			return okResp(model, criticJSON(false, "claim one", "claim two"))
		case "synth":
			return okResp(model, "divergence answer")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Mode != models.SynthesisDivergence {
		t.Errorf("Mode = %q, want %q", run.Mode, models.SynthesisDivergence)
	}
	if len(run.DebateRounds) != 1 {
		t.Errorf("ran %d debate rounds, want 1", len(run.DebateRounds))
	}
	last := run.Gates[len(run.Gates)-1]
	if last.Route != "circuit_breaker_triggered" {
		t.Errorf("final gate = %q, want circuit_breaker_triggered", last.Route)
	}
	if got := criticCalls.Load(); got != 2 {
		t.Errorf("critic called %d times, want 2", got)
	}
}

func TestPipeline_FinalDivergence(t *testing.T) {
	// Progress every round but never consensus: the round budget ends the
	// loop in divergence mode.
	var criticCalls atomic.Int32
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			switch criticCalls.Add(1) {
			case 1:
				return okResp(model, criticJSON(false, "claim one", "claim two", "claim three"))
			case 2:
				return okResp(model, criticJSON(false, "claim one", "claim two"))
			default:
				return okResp(model, criticJSON(false, "claim one"))
			}
		case "synth":
			return okResp(model, "divergence answer")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	cfg := pipelineConfig()
	cfg.MaxRounds = 2
	pipe, _ := New(gw, cfg)
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Mode != models.SynthesisDivergence {
		t.Errorf("Mode = %q, want %q", run.Mode, models.SynthesisDivergence)
	}
	if len(run.DebateRounds) != 2 {
		t.Errorf("ran %d debate rounds, want 2", len(run.DebateRounds))
	}
	last := run.Gates[len(run.Gates)-1]
	if last.Route != "final_divergence" {
		t.Errorf("final gate = %q, want final_divergence", last.Route)
	}
}

func TestPipeline_CriticFailureAbortsRun(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			return failResp(model, "deadline exceeded after 30s")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err == nil {
		t.Fatal("Run() should fail when the critic call fails")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Run() error = %T, want *StageError", err)
	}
	if stageErr.Stage != models.StageCritiquing {
		t.Errorf("StageError.Stage = %q, want %q", stageErr.Stage, models.StageCritiquing)
	}
	if run.Status != models.StageFailed {
		t.Errorf("Status = %q, want %q", run.Status, models.StageFailed)
	}
	if run.FailedStage != models.StageCritiquing {
		t.Errorf("FailedStage = %q, want %q", run.FailedStage, models.StageCritiquing)
	}
	if run.FailureReason == "" {
		t.Error("FailureReason should describe the failure")
	}
	// No later stage runs after a critic failure.
	if gw.callCount("synth") != 0 {
		t.Error("synthesizer must not be called after a critic failure")
	}
	if gw.callCount("m1") != 1 || gw.callCount("m2") != 1 {
		t.Error("no debate calls should happen after a critic failure")
	}
}

func TestPipeline_CriticParseFailureAbortsRun(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			return okResp(model, "sorry, I cannot produce JSON today")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err == nil {
		t.Fatal("Run() should fail on unparseable critic output")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Run() error = %v, want to unwrap to *ParseError", err)
	}
	if run.FailedStage != models.StageCritiquing {
		t.Errorf("FailedStage = %q, want %q", run.FailedStage, models.StageCritiquing)
	}
}

func TestPipeline_AllInitialCallsFail(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		return failResp(model, "connection refused")
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if !errors.Is(err, ErrNoResponses) {
		t.Fatalf("Run() error = %v, want ErrNoResponses", err)
	}
	if run.Status != models.StageFailed {
		t.Errorf("Status = %q, want %q", run.Status, models.StageFailed)
	}
	// With nothing to evaluate the critic is never prompted.
	if gw.callCount("critic") != 0 {
		t.Errorf("critic called %d times, want 0", gw.callCount("critic"))
	}
}

func TestPipeline_SurvivesPartialInitialFailure(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "m2":
			return failResp(model, "deadline exceeded after 30s")
		case "critic":
			return okResp(model, `{"consensus_reached": true, "discrepancies": []}`)
		case "synth":
			return okResp(model, "final answer")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != models.StageDone {
		t.Errorf("Status = %q, want %q", run.Status, models.StageDone)
	}
	if len(run.Initial) != 2 {
		t.Errorf("Initial holds %d entries, want 2 (failures recorded, not dropped)", len(run.Initial))
	}
	if run.Initial["m2"].OK {
		t.Error("m2's failure should be recorded on its entry")
	}
}

func TestPipeline_ThreeModelDebate(t *testing.T) {
	// m2 fails in both rounds and drops out; m3 is never named in a
	// discrepancy, so its debate prompt is the review-and-confirm form.
	var criticCalls atomic.Int32
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "m2":
			return failResp(model, "connection refused")
		case "critic":
			if criticCalls.Add(1) == 1 {
				raw, _ := json.Marshal(models.Evaluation{Discrepancies: []models.Discrepancy{{
					Claim:         "contested claim",
					ModelsWith:    []string{"m3"},
					ModelsMissing: []string{"m1"},
				}}})
				return okResp(model, string(raw))
			}
			return okResp(model, `{"consensus_reached": true, "discrepancies": []}`)
		case "synth":
			return okResp(model, "final answer")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	cfg := pipelineConfig()
	cfg.Roster = []string{"m1", "m2", "m3"}
	pipe, _ := New(gw, cfg)
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Status != models.StageDone {
		t.Errorf("Status = %q, want %q", run.Status, models.StageDone)
	}
	if len(run.DebateRounds) != 1 {
		t.Fatalf("ran %d debate rounds, want 1", len(run.DebateRounds))
	}
	post := run.DebateRounds[0]
	if len(post) != 2 {
		t.Errorf("post-debate set holds %d models, want 2 (m2 failed twice)", len(post))
	}
	if _, ok := post["m2"]; ok {
		t.Error("m2 failed both rounds and should be omitted")
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	var sawDebate bool
	for _, c := range gw.calls {
		if c.model != "m3" || !strings.Contains(c.prompt, "parallel review") {
			continue
		}
		sawDebate = true
		if !strings.Contains(c.prompt, "no significant discrepancies") {
			t.Error("m3 was never named in a discrepancy; its debate prompt should be the confirm form")
		}
	}
	if !sawDebate {
		t.Error("m3 should have been re-queried in the debate round")
	}
}

func TestPipeline_SynthesisFailure(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			return okResp(model, criticJSON(true))
		case "synth":
			return failResp(model, "deadline exceeded after 30s")
		default:
			return okResp(model, "answer from "+model)
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err == nil {
		t.Fatal("Run() should fail when synthesis fails")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Run() error = %T, want *StageError", err)
	}
	if stageErr.Stage != models.StageSynthesizing {
		t.Errorf("StageError.Stage = %q, want %q", stageErr.Stage, models.StageSynthesizing)
	}
	if run.FailedStage != models.StageSynthesizing {
		t.Errorf("FailedStage = %q, want %q", run.FailedStage, models.StageSynthesizing)
	}
	if run.FinalAnswer != "" {
		t.Error("a failed run must not carry a final answer")
	}
}

func TestPipeline_RecordsTimings(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			return okResp(model, criticJSON(true))
		case "synth":
			return okResp(model, "final answer")
		default:
			return okResp(model, "x")
		}
	}

	pipe, _ := New(gw, pipelineConfig())
	run, err := pipe.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stages := make(map[models.Stage]bool)
	for _, timing := range run.Timings {
		stages[timing.Stage] = true
	}
	for _, want := range []models.Stage{models.StageFetching, models.StageCritiquing, models.StageSynthesizing} {
		if !stages[want] {
			t.Errorf("no timing recorded for stage %q", want)
		}
	}
}

// blockingGateway holds every call until the context is cancelled.
type blockingGateway struct{}

func (blockingGateway) Complete(ctx context.Context, model, prompt string) models.ModelResponse {
	<-ctx.Done()
	return failResp(model, ctx.Err().Error())
}

func TestPipeline_ContextCancellationUnblocksRun(t *testing.T) {
	pipe, _ := New(blockingGateway{}, pipelineConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var (
		run    *models.Run
		runErr error
	)
	go func() {
		defer close(done)
		run, runErr = pipe.Run(ctx, "question")
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}

	if !errors.Is(runErr, ErrNoResponses) {
		t.Fatalf("Run() error = %v, want ErrNoResponses", runErr)
	}
	if run.Status != models.StageFailed {
		t.Errorf("Status = %q, want %q", run.Status, models.StageFailed)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", pipelineConfig(), false},
		{"empty roster", Config{CriticModel: "c", SynthesizerModel: "s"}, true},
		{"duplicate model", Config{Roster: []string{"m1", "m1"}, CriticModel: "c", SynthesizerModel: "s"}, true},
		{"empty model id", Config{Roster: []string{"m1", ""}, CriticModel: "c", SynthesizerModel: "s"}, true},
		{"missing critic", Config{Roster: []string{"m1"}, SynthesizerModel: "s"}, true},
		{"missing synthesizer", Config{Roster: []string{"m1"}, CriticModel: "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPipeline_EmitsRunCompleted(t *testing.T) {
	gw := &fakeGateway{}
	gw.respond = func(model, prompt string) models.ModelResponse {
		switch model {
		case "critic":
			return okResp(model, criticJSON(true))
		case "synth":
			return okResp(model, "final answer")
		default:
			return okResp(model, "x")
		}
	}

	emitter := NewEmitter(64)
	pipe, _ := New(gw, pipelineConfig(), WithEmitter(emitter))
	if _, err := pipe.Run(context.Background(), "question"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	emitter.Close()

	var sawCompleted bool
	for ev := range emitter.Events() {
		if ev.Type == EventRunCompleted {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Error("pipeline should emit a run-completed event")
	}
}
