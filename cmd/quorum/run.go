package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
	"github.com/ShayCichocki/quorum/internal/debate"
	"github.com/ShayCichocki/quorum/internal/gateway"
	"github.com/ShayCichocki/quorum/internal/runlog"
	"github.com/ShayCichocki/quorum/internal/tui"
	"github.com/ShayCichocki/quorum/pkg/models"
)

var (
	runModels      []string
	runCritic      string
	runSynthesizer string
	runRosterFile  string
	runTimeout     time.Duration
	runRounds      int
	runNoTUI       bool
	runNoLog       bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run a debate pipeline for a prompt",
	Long: `Run the full debate pipeline for a prompt.

Every roster model answers in parallel, a critic extracts claim-level
discrepancies, each model is re-prompted with the claims it missed, and
a strong model synthesizes the final answer from the post-debate
responses.

Model identifiers use OpenRouter naming ("vendor/model"). Models with
an "anthropic/" or "google/" prefix are called natively when the
matching API key is configured; everything else goes through
OpenRouter.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDebate,
}

func init() {
	runCmd.Flags().StringSliceVar(&runModels, "models", nil, "Roster models (overrides config)")
	runCmd.Flags().StringVar(&runCritic, "critic", "", "Critic model (overrides config)")
	runCmd.Flags().StringVar(&runSynthesizer, "synthesizer", "", "Synthesizer model (overrides config)")
	runCmd.Flags().StringVar(&runRosterFile, "roster", "", "Path to a YAML roster file")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-call deadline (overrides config)")
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "Max debate rounds (overrides config)")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "Plain line output instead of the live view")
	runCmd.Flags().BoolVar(&runNoLog, "no-log", false, "Skip persisting the run record")
}

func runDebate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runRosterFile != "" {
		if err := config.LoadRoster(runRosterFile, cfg); err != nil {
			return err
		}
	}
	applyRunFlags(cfg)

	router, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	pipeCfg := debate.Config{
		Roster:           cfg.Models.Roster,
		CriticModel:      cfg.Models.Critic,
		SynthesizerModel: cfg.Models.Synthesizer,
		AgreementModel:   cfg.Models.Agreement,
		MaxRounds:        cfg.Pipeline.MaxDebateRounds,
	}

	emitter := debate.NewEmitter(64)
	opts := []debate.Option{debate.WithEmitter(emitter)}

	if cfg.Logs.DebugFile != "" {
		logger, err := debate.NewDebugLogger(cfg.Logs.DebugFile)
		if err != nil {
			return err
		}
		defer logger.Close()
		opts = append(opts, debate.WithDebugLogger(logger))
	}

	pipe, err := debate.New(router, pipeCfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		run    *models.Run
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer emitter.Close()
		run, runErr = pipe.Run(ctx, prompt)
	}()

	if !runNoTUI {
		if _, err := tea.NewProgram(tui.NewProgress(prompt, emitter.Events())).Run(); err != nil {
			// Display failure must not lose the run; fall through and wait.
			fmt.Fprintf(os.Stderr, "display error: %v\n", err)
		}
		// In TUI mode the terminal is raw, so ctrl+c arrives as a key
		// event rather than SIGINT. If the view quit while the pipeline
		// is still running, cancel it instead of blocking invisibly.
		cancel()
	} else {
		tui.NewPlainPrinter(os.Stdout).Consume(emitter.Events())
	}
	<-done

	if run != nil && !runNoLog {
		if err := persistRun(cfg, run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not persist run: %v\n", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Printf("\n%s\n", run.FinalAnswer)
	return nil
}

// applyRunFlags overlays command-line flags onto the loaded config.
func applyRunFlags(cfg *config.Config) {
	if len(runModels) > 0 {
		cfg.Models.Roster = runModels
	}
	if runCritic != "" {
		cfg.Models.Critic = runCritic
	}
	if runSynthesizer != "" {
		cfg.Models.Synthesizer = runSynthesizer
	}
	if runTimeout > 0 {
		cfg.Pipeline.CallTimeout = runTimeout
	}
	if runRounds > 0 {
		cfg.Pipeline.MaxDebateRounds = runRounds
	}
}

// buildRouter assembles the gateway from the configured providers.
// OpenRouter is the fallback for unprefixed models; native Anthropic and
// Gemini backends are attached when their credentials are available.
func buildRouter(cfg *config.Config) (*gateway.Router, error) {
	var fallback gateway.Provider
	if or, err := gateway.NewOpenRouter(cfg.Providers.OpenRouter.APIKey); err == nil {
		fallback = or
	} else {
		fallback = gateway.Unavailable{Reason: err.Error()}
	}

	opts := []gateway.RouterOption{
		gateway.WithTimeout(cfg.Pipeline.CallTimeout),
	}
	if cfg.Pipeline.CacheSize > 0 {
		opts = append(opts, gateway.WithCache(cfg.Pipeline.CacheSize))
	}

	if cfg.Providers.Anthropic.APIKey != "" || cfg.Providers.Anthropic.UseBedrock || os.Getenv("ANTHROPIC_API_KEY") != "" {
		ap, err := gateway.NewAnthropic(gateway.AnthropicConfig{
			APIKey:        cfg.Providers.Anthropic.APIKey,
			UseAWSBedrock: cfg.Providers.Anthropic.UseBedrock,
			AWSRegion:     cfg.Providers.Anthropic.AWSRegion,
			AWSProfile:    cfg.Providers.Anthropic.AWSProfile,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, gateway.WithProvider("anthropic", ap))
	}

	if cfg.Providers.Gemini.APIKey != "" || os.Getenv("GEMINI_API_KEY") != "" {
		gp, err := gateway.NewGemini(context.Background(), cfg.Providers.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gateway.WithProvider("google", gp))
	}

	return gateway.NewRouter(fallback, opts...), nil
}

// persistRun saves the run record to the run-log database.
func persistRun(cfg *config.Config, run *models.Run) error {
	path := cfg.Logs.DBPath
	if path == "" {
		path = runlog.DefaultPath()
	}
	db, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveRun(run)
}
