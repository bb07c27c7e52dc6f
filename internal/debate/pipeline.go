package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// DefaultMaxRounds bounds the debate loop: after this many rounds an
// unresolved run goes to divergence synthesis instead of debating again.
const DefaultMaxRounds = 2

// Config holds the pipeline's model assignments and loop bound. All
// configuration is injected here at construction; the pipeline reads no
// ambient state.
type Config struct {
	// Roster lists the models queried in the initial and debate stages.
	Roster []string
	// CriticModel evaluates cross-model discrepancies (a fast model).
	CriticModel string
	// SynthesizerModel produces the final answer (a strong model).
	SynthesizerModel string
	// AgreementModel classifies bare-agreement debate replies. Empty
	// disables agreement substitution.
	AgreementModel string
	// MaxRounds caps the number of debate rounds (DefaultMaxRounds if 0).
	MaxRounds int
}

// Validate checks the config before a run.
func (c *Config) Validate() error {
	if len(c.Roster) == 0 {
		return fmt.Errorf("roster must contain at least one model")
	}
	seen := make(map[string]bool, len(c.Roster))
	for _, m := range c.Roster {
		if m == "" {
			return fmt.Errorf("roster contains an empty model identifier")
		}
		if seen[m] {
			return fmt.Errorf("roster contains duplicate model %q", m)
		}
		seen[m] = true
	}
	if c.CriticModel == "" {
		return fmt.Errorf("critic model is required")
	}
	if c.SynthesizerModel == "" {
		return fmt.Errorf("synthesizer model is required")
	}
	return nil
}

func (c *Config) maxRounds() int {
	if c.MaxRounds <= 0 {
		return DefaultMaxRounds
	}
	return c.MaxRounds
}

// Pipeline executes the full debate flow for one prompt: initial fetch,
// critic pass, gated debate rounds, and synthesis. Stages are separated
// by strict barriers: no stage builds a prompt until every call of the
// previous stage has resolved.
type Pipeline struct {
	cfg     Config
	fetcher *Fetcher
	critic  *Critic
	rounds  *Orchestrator
	synth   *Synthesizer
	emitter *Emitter
	logger  *DebugLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEmitter attaches an event emitter for progress observation.
func WithEmitter(e *Emitter) Option {
	return func(p *Pipeline) { p.emitter = e }
}

// WithDebugLogger attaches a file-backed debug logger.
func WithDebugLogger(l *DebugLogger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline over the given gateway.
func New(gw Gateway, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	var agreement *AgreementChecker
	if cfg.AgreementModel != "" {
		agreement = NewAgreementChecker(gw, cfg.AgreementModel)
	}

	p := &Pipeline{
		cfg:     cfg,
		fetcher: NewFetcher(gw),
		critic:  NewCritic(gw, cfg.CriticModel),
		rounds:  NewOrchestrator(gw, agreement),
		synth:   NewSynthesizer(gw, cfg.SynthesizerModel),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the pipeline for one prompt. On success the returned Run
// has Status Done and a final answer; on failure it has Status Failed
// with the failing stage recorded, and the error is a *StageError.
// The Run record is returned in both cases so the caller can persist it.
func (p *Pipeline) Run(ctx context.Context, prompt string) (*models.Run, error) {
	run := &models.Run{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		StartedAt: time.Now(),
	}
	p.log("run %s started, roster=%v", run.ID, p.cfg.Roster)

	// Stage 1: initial fetch. Partial per-model failure is tolerated;
	// the stage itself cannot fail.
	p.emit(Event{Type: EventStageStarted, Stage: models.StageFetching})
	start := time.Now()
	run.Initial = p.fetcher.Fetch(ctx, prompt, p.cfg.Roster, p.emit)
	p.recordTiming(run, models.StageFetching, 0, time.Since(start))
	p.emit(Event{Type: EventStageCompleted, Stage: models.StageFetching, Elapsed: time.Since(start)})
	p.log("initial fetch done: %d/%d succeeded", len(run.Initial.Succeeded()), len(run.Initial))

	// Critic pass 0 over the initial responses.
	eval, err := p.criticPass(ctx, run, 0, run.Initial, nil)
	if err != nil {
		return p.fail(run, models.StageCritiquing, err)
	}

	// Gate 0: fast path. With consensus on the first pass there is
	// nothing to debate; synthesize directly from the consensus set.
	if eval.ConsensusReached {
		p.gate(run, 0, "fast_path_consensus", "consensus reached at pass 0, skipping debates")
		return p.synthesize(ctx, run, NewSynthesisInput(run.Initial), eval, models.SynthesisConsensus)
	}
	baseline := len(eval.Discrepancies)
	p.gate(run, 0, "proceed_to_debate_1", fmt.Sprintf("no consensus, %d discrepancies detected", baseline))

	prior := run.Initial
	for round := 1; ; round++ {
		// Debate round: targeted re-query of every model still present.
		p.emit(Event{Type: EventStageStarted, Stage: models.StageDebating, Round: round})
		start = time.Now()
		postDebate := p.rounds.Run(ctx, prompt, prior, eval, p.emit)
		p.recordTiming(run, models.StageDebating, round, time.Since(start))
		run.DebateRounds = append(run.DebateRounds, postDebate)
		p.emit(Event{Type: EventStageCompleted, Stage: models.StageDebating, Round: round, Elapsed: time.Since(start)})
		p.log("debate round %d done: %d models in post-debate set", round, len(postDebate))

		previous := eval
		eval, err = p.criticPass(ctx, run, round, postDebate, previous)
		if err != nil {
			return p.fail(run, models.StageCritiquing, err)
		}
		if resolved := eval.ResolvedSince(previous); len(resolved) > 0 {
			p.log("round %d resolved %d claim(s)", round, len(resolved))
		}

		input := NewSynthesisInput(postDebate)

		// Gate: consensus ends the loop; a non-decreasing discrepancy
		// count means the models are digging in, so stop debating and
		// synthesize the divergence; otherwise keep going until the
		// round budget runs out.
		count := len(eval.Discrepancies)
		switch {
		case eval.ConsensusReached:
			p.gate(run, round, fmt.Sprintf("consensus_after_debate_%d", round), fmt.Sprintf("models converged after debate %d", round))
			return p.synthesize(ctx, run, input, eval, models.SynthesisConsensus)
		case count >= baseline:
			p.gate(run, round, "circuit_breaker_triggered", fmt.Sprintf("discrepancies did not decrease (%d >= %d)", count, baseline))
			return p.synthesize(ctx, run, input, eval, models.SynthesisDivergence)
		case round >= p.cfg.maxRounds():
			p.gate(run, round, "final_divergence", fmt.Sprintf("no consensus after %d debate rounds", round))
			return p.synthesize(ctx, run, input, eval, models.SynthesisDivergence)
		default:
			p.gate(run, round, fmt.Sprintf("proceed_to_debate_%d", round+1), fmt.Sprintf("progress detected: %d < %d discrepancies", count, baseline))
			baseline = count
			prior = postDebate
		}
	}
}

// criticPass runs one critic evaluation and records it on the run.
func (p *Pipeline) criticPass(ctx context.Context, run *models.Run, pass int, responses models.ResponseSet, previous *models.Evaluation) (*models.Evaluation, error) {
	p.emit(Event{Type: EventStageStarted, Stage: models.StageCritiquing, Round: pass})
	start := time.Now()
	eval, err := p.critic.Evaluate(ctx, responses, previous)
	p.recordTiming(run, models.StageCritiquing, pass, time.Since(start))
	if err != nil {
		return nil, err
	}

	run.CriticPasses = append(run.CriticPasses, *eval)
	p.emit(Event{
		Type:          EventCriticPass,
		Stage:         models.StageCritiquing,
		Round:         pass,
		OK:            eval.ConsensusReached,
		Discrepancies: len(eval.Discrepancies),
		Elapsed:       time.Since(start),
	})
	p.log("critic pass %d: consensus=%t discrepancies=%d", pass, eval.ConsensusReached, len(eval.Discrepancies))
	return eval, nil
}

// synthesize runs the final stage and completes the run.
func (p *Pipeline) synthesize(ctx context.Context, run *models.Run, input SynthesisInput, eval *models.Evaluation, mode models.SynthesisMode) (*models.Run, error) {
	p.emit(Event{Type: EventStageStarted, Stage: models.StageSynthesizing})
	var (
		answer  string
		elapsed time.Duration
		err     error
	)
	if mode == models.SynthesisConsensus {
		answer, elapsed, err = p.synth.Consensus(ctx, run.Prompt, input)
	} else {
		answer, elapsed, err = p.synth.Divergence(ctx, run.Prompt, input, eval)
	}
	p.recordTiming(run, models.StageSynthesizing, 0, elapsed)
	if err != nil {
		return p.fail(run, models.StageSynthesizing, err)
	}

	run.FinalAnswer = answer
	run.Mode = mode
	run.Status = models.StageDone
	run.FinishedAt = time.Now()
	p.emit(Event{Type: EventRunCompleted, Stage: models.StageDone, OK: true, Elapsed: run.Duration()})
	p.log("run %s done in %s (mode=%s)", run.ID, run.Duration(), mode)
	return run, nil
}

// fail finalizes the run in the Failed state.
func (p *Pipeline) fail(run *models.Run, stage models.Stage, err error) (*models.Run, error) {
	run.Status = models.StageFailed
	run.FailedStage = stage
	run.FailureReason = err.Error()
	run.FinishedAt = time.Now()
	p.emit(Event{Type: EventRunFailed, Stage: stage, Message: err.Error()})
	p.log("run %s failed at %s: %v", run.ID, stage, err)
	return run, &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) gate(run *models.Run, gate int, route, reason string) {
	run.Gates = append(run.Gates, models.GateDecision{Gate: gate, Route: route, Reason: reason})
	p.emit(Event{Type: EventGateDecision, Round: gate, Message: route + ": " + reason})
	p.log("gate %d: %s (%s)", gate, route, reason)
}

func (p *Pipeline) recordTiming(run *models.Run, stage models.Stage, round int, elapsed time.Duration) {
	run.Timings = append(run.Timings, models.StageTiming{Stage: stage, Round: round, Elapsed: elapsed})
}

func (p *Pipeline) emit(ev Event) {
	if p.emitter != nil {
		p.emitter.Emit(ev)
	}
}

func (p *Pipeline) log(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Log(format, args...)
	}
}
