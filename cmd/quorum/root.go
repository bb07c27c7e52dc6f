package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Multi-model debate synthesis",
	Long: `Quorum asks several language models the same question, has a critic
surface where they disagree, lets each model revise its answer knowing
what it missed, and merges the revised answers into one authoritative
response.

Pipeline stages:
- Initial: every roster model answers the prompt in parallel
- Critique: a fast model extracts claim-level discrepancies
- Debate: each model is re-prompted with the claims it missed
- Synthesis: a strong model merges the post-debate answers

Debates are bounded: consensus ends the loop early, and a circuit
breaker stops models that keep digging in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
