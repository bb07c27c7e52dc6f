package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/quorum/internal/debate"
	"github.com/ShayCichocki/quorum/pkg/models"
)

func TestPlainPrinter_Consume(t *testing.T) {
	events := make(chan debate.Event, 8)
	events <- debate.Event{Type: debate.EventStageStarted, Stage: models.StageFetching}
	events <- debate.Event{Type: debate.EventModelResolved, Stage: models.StageFetching, Model: "vendor/m1", OK: true, Elapsed: time.Second}
	events <- debate.Event{Type: debate.EventModelResolved, Stage: models.StageFetching, Model: "vendor/m2", OK: false}
	events <- debate.Event{Type: debate.EventCriticPass, Round: 0, OK: true, Discrepancies: 0}
	events <- debate.Event{Type: debate.EventGateDecision, Message: "fast_path_consensus: consensus reached at pass 0"}
	events <- debate.Event{Type: debate.EventRunCompleted, OK: true, Elapsed: 3 * time.Second}
	close(events)

	var out strings.Builder
	NewPlainPrinter(&out).Consume(events)
	got := out.String()

	for _, want := range []string{
		"fetching",
		"vendor/m1",
		"vendor/m2",
		"critic pass 0",
		"fast_path_consensus",
		"pipeline done",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlainPrinter_Failure(t *testing.T) {
	events := make(chan debate.Event, 2)
	events <- debate.Event{Type: debate.EventRunFailed, Stage: models.StageCritiquing, Message: "critic call failed"}
	close(events)

	var out strings.Builder
	NewPlainPrinter(&out).Consume(events)
	got := out.String()

	if !strings.Contains(got, "failed at critiquing") {
		t.Errorf("output should name the failed stage:\n%s", got)
	}
	if !strings.Contains(got, "critic call failed") {
		t.Errorf("output should carry the failure message:\n%s", got)
	}
}
