package tui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ShayCichocki/quorum/internal/debate"
)

// PlainPrinter renders pipeline events as plain colored status lines.
// It is the fallback display for non-TTY output and --no-tui runs.
type PlainPrinter struct {
	out io.Writer
}

// NewPlainPrinter creates a printer writing to out.
func NewPlainPrinter(out io.Writer) *PlainPrinter {
	return &PlainPrinter{out: out}
}

// Consume drains the event stream, printing one line per event, and
// returns when the stream closes.
func (p *PlainPrinter) Consume(events <-chan debate.Event) {
	for ev := range events {
		switch ev.Type {
		case debate.EventStageStarted:
			fmt.Fprintf(p.out, "[+] %s...\n", stageLabel(ev.Stage, ev.Round))
		case debate.EventStageCompleted:
			fmt.Fprintf(p.out, "[%s] %s completed in %s\n",
				color.GreenString("✓"), stageLabel(ev.Stage, ev.Round), ev.Elapsed.Round(timeRounding))
		case debate.EventModelResolved:
			mark := color.GreenString("✓")
			if !ev.OK {
				mark = color.RedString("✗")
			}
			fmt.Fprintf(p.out, "    %s %s (%s)\n", mark, ev.Model, ev.Elapsed.Round(timeRounding))
		case debate.EventCriticPass:
			fmt.Fprintf(p.out, "[%s] critic pass %d: consensus=%t, %d discrepancies\n",
				color.GreenString("✓"), ev.Round, ev.OK, ev.Discrepancies)
		case debate.EventGateDecision:
			fmt.Fprintf(p.out, "[→] %s\n", ev.Message)
		case debate.EventRunCompleted:
			fmt.Fprintf(p.out, "[%s] pipeline done in %s\n",
				color.GreenString("✓"), ev.Elapsed.Round(timeRounding))
		case debate.EventRunFailed:
			fmt.Fprintf(p.out, "[%s] pipeline failed at %s: %s\n",
				color.RedString("✗"), ev.Stage, ev.Message)
		}
	}
}
