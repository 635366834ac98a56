// Package agent drives a reasoning backend to produce a validated RepoFacts
// document for a scanned repository.
//
// Flow of one standard call:
//
//	openSession (model fallback) → Send → multiplexer (tool requests → Dispatcher)
//	  → extract.JSON → schema.Validate → retryController → MergeStack
//
// Fast mode attaches no tools, inlines a handful of files and sends once.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"repolens/internal/backend"
	"repolens/internal/config"
	"repolens/internal/extract"
	"repolens/internal/logging"
	"repolens/internal/schema"
	"repolens/internal/tools"
	"repolens/internal/tools/repo"
	"repolens/internal/types"
)

// Config holds the settings an Analyzer needs from the loaded configuration.
type Config struct {
	Backend  config.BackendConfig
	Timeouts config.Timeouts
}

// Observer is notified once per Analyze call with the final stats.
type Observer interface {
	AnalysisFinished(ctx context.Context, stats *types.AnalysisStats, err error)
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithVerboseOutput sets where raw deltas and tool traces go when a request
// is verbose. Defaults to stderr.
func WithVerboseOutput(w io.Writer) Option {
	return func(a *Analyzer) { a.verbose = w }
}

// WithProgress sets the progress callback used for non-verbose runs.
func WithProgress(fn func(string)) Option {
	return func(a *Analyzer) { a.progress = fn }
}

// WithObserver registers an observer for finished analyses.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) { a.observer = o }
}

// WithClock overrides the time source for stats timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// Analyzer runs analyses against one session factory. It holds no per-call
// state and may be reused.
type Analyzer struct {
	factory  backend.SessionFactory
	backend  config.BackendConfig
	timeouts config.Timeouts

	verbose  io.Writer
	progress func(string)
	observer Observer
	now      func() time.Time
}

// New creates an Analyzer.
func New(factory backend.SessionFactory, cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		factory:  factory,
		backend:  cfg.Backend,
		timeouts: cfg.Timeouts,
		verbose:  os.Stderr,
		progress: func(string) {},
		now:      time.Now,
	}
	def := config.DefaultTimeouts()
	if a.timeouts.Explore <= 0 {
		a.timeouts.Explore = def.Explore
	}
	if a.timeouts.Retry <= 0 {
		a.timeouts.Retry = def.Retry
	}
	if a.timeouts.Fast <= 0 {
		a.timeouts.Fast = def.Fast
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request is one analysis call.
type Request struct {
	Scan    *types.ScanResult
	Options config.AnalyzeOptions
}

// Analyze runs the pipeline. Stats are always returned, populated up to the
// point of failure.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*types.RepoFacts, *types.AnalysisStats, error) {
	mode := types.ModeStandard
	if req.Options.Fast {
		mode = types.ModeFast
	}
	collector := newStatsCollector(mode, a.now)
	timer := logging.StartTimer(logging.CategoryAgent, "analysis")

	facts, err := a.analyze(ctx, req, collector)
	stats := collector.finish()
	timer.Stop()

	if err != nil {
		logging.AgentError("Analysis failed (mode=%s model=%s attempts=%d): %v", mode, stats.Model, stats.Attempts, err)
	} else {
		logging.Agent("Analysis succeeded (mode=%s model=%s attempts=%d tools=%d events=%d)",
			mode, stats.Model, stats.Attempts, len(stats.ToolCalls), stats.TotalEvents)
	}
	if a.observer != nil {
		a.observer.AnalysisFinished(ctx, stats, err)
	}
	return facts, stats, err
}

func (a *Analyzer) analyze(ctx context.Context, req Request, stats *statsCollector) (*types.RepoFacts, error) {
	if req.Scan == nil {
		return nil, ErrNoScan
	}
	if err := req.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	var override string
	if req.Options.RepoPrompts || req.Options.RepoPromptPath != "" {
		override = LoadRepoPrompt(req.Scan.Root, req.Options.RepoPromptPath)
	}

	var (
		facts *types.RepoFacts
		err   error
	)
	if req.Options.Fast {
		facts, err = a.analyzeFast(ctx, req, override, stats)
	} else {
		facts, err = a.analyzeStandard(ctx, req, override, stats)
	}
	if err != nil {
		return nil, err
	}
	facts.Stack = MergeStack(req.Scan.Stack, facts.Stack)
	return facts, nil
}

func (a *Analyzer) analyzeStandard(ctx context.Context, req Request, override string, stats *statsCollector) (*types.RepoFacts, error) {
	verbose := a.verboseWriter(req.Options)
	tctx, err := tools.NewContext(req.Scan.Root, req.Options.Verbose)
	if err != nil {
		return nil, err
	}
	tctx.OnInvoke = func(name string, args map[string]any) {
		stats.toolInvoked(name, args)
		if verbose != nil {
			fmt.Fprintf(verbose, "\n→ %s %s\n", name, tools.Summarize(args, 120))
		}
	}
	tctx.OnResult = func(name string, res tools.Result, elapsed time.Duration) {
		stats.toolFinished(name, res, elapsed)
		if verbose != nil {
			status := "ok"
			if res.IsError {
				status = "error: " + tools.Truncate(res.Content, 120)
			}
			fmt.Fprintf(verbose, "← %s %s (%v)\n", name, status, elapsed.Round(time.Millisecond))
		}
	}

	dispatcher, err := repo.NewDispatcher(tctx)
	if err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	sess, model, err := openSession(ctx, a.factory, a.candidates(req.Options.Model), backend.SessionConfig{
		SystemPrompt: systemPrompt(true),
		Streaming:    true,
		Tools:        toolSpecs(dispatcher.Registry()),
	}, stats)
	if err != nil {
		return nil, err
	}
	defer a.closeSession(sess)

	rc := newRetryController(buildAnalysisPrompt(promptInput{
		scan:     req.Scan,
		focus:    req.Options.Focus,
		audience: req.Options.Audience,
		deep:     isDeepModel(model),
		override: override,
	}), override)
	mux := newMultiplexer(stats, dispatcher, verbose, a.progress)

	var (
		facts *types.RepoFacts
		last  string
	)
	for !rc.terminal() {
		timeout := a.timeouts.Retry
		if rc.state == stateInitial {
			timeout = a.timeouts.Explore
		} else {
			logging.Retry("Attempt %d/%d (%s): %s", rc.sent+1, MaxRetries+1, rc.state, schema.SummarizeMissingFields(rc.errors))
		}

		text, err := a.sendAndWait(ctx, sess, mux, rc.prompt(), timeout)
		if err != nil {
			return nil, err
		}
		last = text

		var errs []string
		facts, errs = validateResponse(text)
		if st := rc.next(facts != nil, errs); st != stateSucceeded {
			logging.RetryWarn("Attempt %d invalid: %s", rc.sent, schema.SummarizeMissingFields(errs))
		}
	}

	if rc.state == stateFailed {
		return nil, rc.failure(last)
	}
	return facts, nil
}

// sendAndWait runs one turn under timeout. On any failure the partial
// buffer is discarded; only its length is kept in stats.
func (a *Analyzer) sendAndWait(ctx context.Context, sess backend.Session, mux *multiplexer, prompt string, timeout time.Duration) (string, error) {
	turnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mux.reset()
	mux.stats.attempt()
	logging.AgentDebug("Sending prompt (%d bytes, timeout %v) to %s", len(prompt), timeout, sess.Model())

	stream, err := sess.Send(turnCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("send failed: %w", err)
	}
	text, err := mux.consume(turnCtx, stream)
	mux.stats.responseLength(mux.buffered())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %v (discarded %d bytes of partial response): %w",
				ErrTimeout, timeout, mux.buffered(), err)
		}
		return "", fmt.Errorf("backend turn failed: %w", err)
	}
	return text, nil
}

// validateResponse extracts and validates one response. It returns the
// document, or the validation errors when there is none.
func validateResponse(text string) (*types.RepoFacts, []string) {
	v, strategy, err := extract.JSON(text)
	if err != nil {
		return nil, []string{fmt.Sprintf("invalid: response (%v)", err)}
	}
	logging.AgentDebug("Extracted JSON via %s strategy", strategy)

	res := schema.Validate(v)
	for _, w := range res.Warnings {
		logging.AgentDebug("Validation warning: %s", w)
	}
	if !res.Valid() {
		return nil, res.Errors
	}
	return res.Data, nil
}

func (a *Analyzer) candidates(override string) []string {
	return a.backend.CandidateModels(override)
}

func (a *Analyzer) verboseWriter(opts config.AnalyzeOptions) io.Writer {
	if !opts.Verbose {
		return nil
	}
	return a.verbose
}

func (a *Analyzer) closeSession(sess backend.Session) {
	if err := sess.Close(); err != nil {
		logging.AgentWarn("Failed to close session %s: %v", sess.ID(), err)
	}
}

func toolSpecs(reg *tools.Registry) []backend.ToolSpec {
	all := reg.All()
	specs := make([]backend.ToolSpec, 0, len(all))
	for _, t := range all {
		specs = append(specs, backend.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema.JSONSchema(),
		})
	}
	return specs
}
