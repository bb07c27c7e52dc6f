package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
	"github.com/ShayCichocki/quorum/internal/runlog"
	"github.com/ShayCichocki/quorum/pkg/models"
)

// timeDisplayRounding trims sub-10ms noise from displayed durations.
const timeDisplayRounding = 10 * time.Millisecond

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRunLog()
		if err != nil {
			return err
		}
		defer db.Close()

		summaries, err := db.ListRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, s := range summaries {
			status := color.GreenString(string(s.Status))
			if s.Status == models.StageFailed {
				status = color.RedString(string(s.Status))
			}
			fmt.Printf("%s  %s  %-10s  %s\n",
				shortID(s.ID), s.StartedAt.Local().Format("2006-01-02 15:04"), status, truncatePrompt(s.Prompt, 60))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRunLog()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := findRun(db, args[0])
		if err != nil {
			return err
		}

		printRun(run)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
}

func openRunLog() (*runlog.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	path := cfg.Logs.DBPath
	if path == "" {
		path = runlog.DefaultPath()
	}
	return runlog.Open(path)
}

// findRun resolves a full or prefixed run ID.
func findRun(db *runlog.DB, id string) (*models.Run, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}

	full, err := db.ResolveIDPrefix(id)
	if err != nil {
		return nil, err
	}
	if full == "" {
		return nil, fmt.Errorf("no run matching %q", id)
	}
	return db.GetRun(full)
}

func printRun(run *models.Run) {
	fmt.Printf("Run:     %s\n", run.ID)
	fmt.Printf("Prompt:  %s\n", run.Prompt)
	fmt.Printf("Status:  %s", run.Status)
	if run.Status == models.StageFailed {
		fmt.Printf(" (at %s: %s)", run.FailedStage, run.FailureReason)
	}
	fmt.Printf("\nStarted: %s (%s total)\n\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Duration().Round(timeDisplayRounding))

	for i, eval := range run.CriticPasses {
		fmt.Printf("Critic pass %d: consensus=%t, %d discrepancies\n", i, eval.ConsensusReached, len(eval.Discrepancies))
		for _, d := range eval.Discrepancies {
			fmt.Printf("  - %s\n    with: %s\n    missing: %s\n",
				d.Claim, strings.Join(d.ModelsWith, ", "), strings.Join(d.ModelsMissing, ", "))
		}
	}
	for _, g := range run.Gates {
		fmt.Printf("Gate %d: %s (%s)\n", g.Gate, g.Route, g.Reason)
	}

	if run.FinalAnswer != "" {
		fmt.Printf("\nFinal answer (%s):\n%s\n", run.Mode, run.FinalAnswer)
	}

	if os.Getenv("QUORUM_DEBUG") != "" {
		for _, t := range run.Timings {
			fmt.Printf("[timing] %s round=%d %s\n", t.Stage, t.Round, t.Elapsed)
		}
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncatePrompt(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
