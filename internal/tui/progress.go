// Package tui provides terminal progress displays for pipeline runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/quorum/internal/debate"
	"github.com/ShayCichocki/quorum/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// timeRounding trims sub-10ms noise from displayed durations.
const timeRounding = 10 * time.Millisecond

// eventMsg wraps a pipeline event for the bubbletea update loop.
type eventMsg debate.Event

// closedMsg signals that the event channel was closed.
type closedMsg struct{}

// modelState is one model's latest per-stage outcome.
type modelState struct {
	model string
	stage models.Stage
	ok    bool
}

// Progress is a bubbletea model that renders live pipeline progress
// from the event stream.
type Progress struct {
	prompt  string
	events  <-chan debate.Event
	spin    spinner.Model
	stage   models.Stage
	round   int
	history []string
	mods    []modelState
	done    bool
	failed  bool
	final   string
}

// NewProgress creates a progress view over the given event stream.
func NewProgress(prompt string, events <-chan debate.Event) *Progress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &Progress{prompt: prompt, events: events, spin: s}
}

// Init implements tea.Model.
func (p *Progress) Init() tea.Cmd {
	return tea.Batch(p.spin.Tick, p.waitForEvent())
}

// waitForEvent reads the next pipeline event as a tea command.
func (p *Progress) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-p.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return p, tea.Quit
		}
	case closedMsg:
		return p, tea.Quit
	case eventMsg:
		p.apply(debate.Event(msg))
		return p, p.waitForEvent()
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return p, cmd
	}
	return p, nil
}

// apply folds one event into the display state.
func (p *Progress) apply(ev debate.Event) {
	switch ev.Type {
	case debate.EventStageStarted:
		p.stage = ev.Stage
		p.round = ev.Round
		p.mods = nil
	case debate.EventStageCompleted:
		p.history = append(p.history, fmt.Sprintf("%s %s", okStyle.Render("✓"), stageLabel(ev.Stage, ev.Round)))
	case debate.EventModelResolved:
		p.mods = append(p.mods, modelState{model: ev.Model, stage: ev.Stage, ok: ev.OK})
	case debate.EventCriticPass:
		p.history = append(p.history, fmt.Sprintf("%s critic pass %d: %d discrepancies",
			okStyle.Render("✓"), ev.Round, ev.Discrepancies))
	case debate.EventGateDecision:
		p.history = append(p.history, dimStyle.Render("→ "+ev.Message))
	case debate.EventRunCompleted:
		p.done = true
		p.final = fmt.Sprintf("completed in %s", ev.Elapsed.Round(timeRounding))
	case debate.EventRunFailed:
		p.done = true
		p.failed = true
		p.final = fmt.Sprintf("failed at %s: %s", ev.Stage, ev.Message)
	}
}

// View implements tea.Model.
func (p *Progress) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("quorum") + " " + dimStyle.Render(truncate(p.prompt, 60)) + "\n\n")

	for _, line := range p.history {
		b.WriteString(line + "\n")
	}

	if p.done {
		if p.failed {
			b.WriteString(failStyle.Render("✗ "+p.final) + "\n")
		} else {
			b.WriteString(okStyle.Render("✓ "+p.final) + "\n")
		}
		return b.String()
	}

	b.WriteString(p.spin.View() + stageStyle.Render(stageLabel(p.stage, p.round)) + "\n")
	for _, m := range p.mods {
		mark := okStyle.Render("✓")
		if !m.ok {
			mark = failStyle.Render("✗")
		}
		b.WriteString("  " + mark + " " + m.model + "\n")
	}

	return b.String()
}

// Failed reports whether the observed run ended in failure.
func (p *Progress) Failed() bool {
	return p.failed
}

// stageLabel renders a stage name with its round where relevant.
func stageLabel(stage models.Stage, round int) string {
	switch stage {
	case models.StageDebating:
		return fmt.Sprintf("debate round %d", round)
	case models.StageCritiquing:
		return fmt.Sprintf("critic pass %d", round)
	case "":
		return "starting"
	default:
		return string(stage)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
