// Package debate runs the multi-stage debate pipeline: parallel initial
// querying, critic-driven discrepancy extraction, targeted re-querying,
// and final synthesis.
package debate

import (
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventStageStarted indicates a pipeline stage has begun.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted indicates a pipeline stage has finished.
	EventStageCompleted EventType = "stage_completed"
	// EventModelResolved indicates one model's call in the current stage
	// resolved (success or failure).
	EventModelResolved EventType = "model_resolved"
	// EventCriticPass carries the result of a critic evaluation.
	EventCriticPass EventType = "critic_pass"
	// EventGateDecision indicates how the pipeline routed after a critic pass.
	EventGateDecision EventType = "gate_decision"
	// EventRunCompleted indicates the run reached Done.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed indicates the run reached Failed.
	EventRunFailed EventType = "run_failed"
)

// Event is emitted by the pipeline as it progresses. Subscribers (CLI
// printer, TUI) use these to display progress; the pipeline never blocks
// on a slow subscriber.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// Stage is the pipeline stage the event refers to.
	Stage models.Stage
	// Round is the debate/critic round, 0 for the initial pass.
	Round int
	// Model is the model identifier, for per-model events.
	Model string
	// OK reports the outcome for model and terminal events.
	OK bool
	// Message provides additional context.
	Message string
	// Discrepancies is the discrepancy count for critic events.
	Discrepancies int
	// Elapsed is the duration, for completion events.
	Elapsed time.Duration
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emitter delivers pipeline events to a single subscriber channel.
// Emission is non-blocking: when the buffer is full the event is dropped
// and counted, so display lag can never stall a stage barrier.
type Emitter struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{events: make(chan Event, bufferSize)}
}

// Emit sends an event, dropping it if the buffer is full.
func (e *Emitter) Emit(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Events returns the read-only subscriber channel.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Dropped returns how many events were discarded due to a full buffer.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Close closes the subscriber channel. Call once the run is finished.
func (e *Emitter) Close() {
	close(e.events)
}
