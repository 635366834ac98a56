package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repolens/internal/agent"
	"repolens/internal/backend"
	"repolens/internal/config"
	"repolens/internal/logging"
	"repolens/internal/scan"
	"repolens/internal/telemetry"
)

var (
	// Analyze flags
	fastMode       bool
	verboseOutput  bool
	modelOverride  string
	focusFlag      string
	audienceFlag   string
	repoPrompts    bool
	repoPromptFile string
	outPath        string
	showStats      bool
)

// analyzeCmd runs the analysis pipeline against a repository
var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a repository and emit its RepoFacts JSON",
	Long: `Scans the repository, then drives the configured reasoning backend to
describe it. The model explores through read-only tools (read_file,
list_files, search, get_repo_metadata); its answer is validated and retried
up to twice before giving up.

--fast skips tool use: a few key files are inlined and a single request is
sent with no retries.

Examples:
  repolens analyze .
  repolens analyze ../service --fast --out facts.json
  repolens analyze . --model claude-sonnet-4-5 --focus architecture -v`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&fastMode, "fast", false, "Single tool-free request, no retries")
	analyzeCmd.Flags().BoolVarP(&verboseOutput, "verbose", "v", false, "Stream raw model output and tool calls to stderr")
	analyzeCmd.Flags().StringVar(&modelOverride, "model", "", "Try this model before the configured candidates")
	analyzeCmd.Flags().StringVar(&focusFlag, "focus", "", "onboarding, architecture, contributing or all")
	analyzeCmd.Flags().StringVar(&audienceFlag, "audience", "", "new-hire, oss-contributor or internal-dev")
	analyzeCmd.Flags().BoolVar(&repoPrompts, "repo-prompts", true, "Append .repolens/prompt.md to every prompt")
	analyzeCmd.Flags().StringVar(&repoPromptFile, "repo-prompt-file", "", "Prompt override file (implies --repo-prompts)")
	analyzeCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write JSON to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&showStats, "stats", true, "Print a run summary to stderr")
}

// analyzeOptions merges command-line flags over the configured defaults.
func analyzeOptions(c *config.Config) (config.AnalyzeOptions, error) {
	opts := c.DefaultAnalyzeOptions()
	opts.Fast = fastMode
	opts.Verbose = verboseOutput
	opts.Model = modelOverride
	opts.RepoPrompts = repoPrompts
	opts.RepoPromptPath = repoPromptFile
	if focusFlag != "" {
		opts.Focus = config.Focus(focusFlag)
	}
	if audienceFlag != "" {
		opts.Audience = config.Audience(audienceFlag)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	opts, err := analyzeOptions(cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	timeouts, err := cfg.Timeouts.Parse()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stderr := cmd.ErrOrStderr()

	scanResult, err := scan.Scan(ctx, root, scan.DefaultConfig())
	if err != nil {
		return err
	}

	factory, err := backend.NewFactory(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	exporter, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		logging.TelemetryWarn("Telemetry disabled: %v", err)
		exporter = telemetry.NewNoop()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := exporter.Close(shutdownCtx); err != nil {
			logging.TelemetryWarn("Failed to flush metrics: %v", err)
		}
	}()

	analyzer := agent.New(factory, agent.Config{Backend: cfg.Backend, Timeouts: timeouts},
		agent.WithVerboseOutput(stderr),
		agent.WithProgress(progressPrinter(stderr)),
		agent.WithObserver(exporter),
	)

	facts, stats, err := analyzer.Analyze(ctx, agent.Request{Scan: scanResult, Options: opts})
	if showStats {
		fmt.Fprintln(stderr, renderStats(stats, err))
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')
	return writeOutput(cmd.OutOrStdout(), outPath, data)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logging.Boot("Wrote %s", path)
	return nil
}

// progressPrinter prints progress notices on their own dimmed line.
func progressPrinter(w io.Writer) func(string) {
	return func(msg string) {
		fmt.Fprintln(w, mutedStyle.Render("  "+msg))
	}
}
