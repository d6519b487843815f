package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/roach88/cachecheck/internal/compare"
	"github.com/roach88/cachecheck/internal/config"
	"github.com/roach88/cachecheck/internal/golden"
	"github.com/roach88/cachecheck/internal/runner"
	"github.com/roach88/cachecheck/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Simulator    string
	GoldenDir    string
	GoldenPrefix string
	TraceDir     string
	Table        string
	Database     string
	Skip         []int
	Only         []int
	Anchors      []string
	KeepGoing    bool
	Repeat       int
	Update       bool
	Timeout      time.Duration

	// Runner overrides the simulator runner (for testing).
	// If nil, an ExecRunner for the configured simulator is used.
	Runner runner.CommandRunner
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Report  *suite.Report `json:"report"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	Updated int           `json:"updated,omitempty"`
	Total   int           `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario battery against the simulator",
		Long: `Run every scenario against the simulator and compare its output with the
golden files, stopping at the first divergence.

Scenarios whose output is non-deterministic are skipped. Lines are compared
token by token; simulator diagnostics before a section header are skipped.

Exit codes:
  0 - All non-skipped scenarios matched
  1 - Output diverged from a golden file
  2 - Command error (bad flags, table or database)
  3 - Simulator failed to launch or exited non-zero
  4 - Golden file missing

Examples:
  cachecheck run
  cachecheck run --sim ./cachesim --golden tests --traces traces
  cachecheck run --only 12 --verbose
  cachecheck run --keep-going --db history.db
  cachecheck run --update --only 5,6`,
		Args:          opts.positional(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportCommandError(opts.formatter(cmd), runSuite(opts, cmd))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Simulator, "sim", "", "simulator binary (default ./cachesim)")
	f.StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default tests)")
	f.StringVar(&opts.GoldenPrefix, "golden-prefix", "", "golden file name prefix (default test)")
	f.StringVar(&opts.TraceDir, "traces", "", "trace file directory (default traces)")
	f.StringVar(&opts.Table, "table", "", "scenario table file (.yaml or .cue)")
	f.StringVar(&opts.Database, "db", "", "record the run in this SQLite history database")
	f.IntSliceVar(&opts.Skip, "skip", nil, "additional scenario indices to skip")
	f.IntSliceVar(&opts.Only, "only", nil, "run only these scenario indices")
	f.StringArrayVar(&opts.Anchors, "anchor", nil, "section header to realign on (repeatable, replaces defaults)")
	f.BoolVar(&opts.KeepGoing, "keep-going", false, "report every mismatch instead of stopping at the first")
	f.IntVar(&opts.Repeat, "repeat", 1, "run each scenario this many times")
	f.BoolVar(&opts.Update, "update", false, "regenerate golden files from the simulator output")
	f.DurationVar(&opts.Timeout, "timeout", 0, "abort the whole run after this long (0 = no limit)")

	cmd.SetFlagErrorFunc(opts.flagError)

	return cmd
}

// applyFlags overlays explicitly set flags onto cfg.
func (o *RunOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("sim", &cfg.Simulator, o.Simulator)
	set("golden", &cfg.GoldenDir, o.GoldenDir)
	set("golden-prefix", &cfg.GoldenPrefix, o.GoldenPrefix)
	set("traces", &cfg.TraceDir, o.TraceDir)
	set("table", &cfg.Table, o.Table)
	set("db", &cfg.Database, o.Database)

	if f.Changed("skip") {
		cfg.Skip = append(cfg.Skip, o.Skip...)
	}
	if f.Changed("anchor") {
		cfg.Anchors = o.Anchors
	}
	if f.Changed("keep-going") {
		cfg.KeepGoing = o.KeepGoing
	}
	if f.Changed("timeout") {
		cfg.Timeout = o.Timeout
	}
	if o.Repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}
	if o.Update && o.Repeat > 1 {
		return fmt.Errorf("--update and --repeat cannot be combined")
	}
	return cfg.Validate()
}

func runSuite(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := opts.applyFlags(cmd, &cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}
	table, err = table.Select(opts.Only)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --only", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	formatter := opts.formatter(cmd)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	stopSignals := watchSignals(cancel, logger)
	defer stopSignals()
	if cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Timeout)
		defer cancelTimeout()
	}

	sim := opts.Runner
	if sim == nil {
		sim = runner.ExecRunner{Binary: cfg.Simulator}
	}

	goldens := &golden.Store{Dir: cfg.GoldenDir, Prefix: cfg.GoldenPrefix}

	var (
		ledger *runLedger
		runID  string
		rec    suite.Recorder
	)
	if cfg.Database != "" {
		ledger, err = openLedger(ctx, cfg.Database, cfg.Simulator, cfg.GoldenDir, logger)
		if err != nil {
			return err
		}
		defer ledger.abort()
		runID = ledger.runID
		rec = ledger.Recorder()
		logger.Info("recording run", "run_id", runID, "db", cfg.Database)
	}

	var progress io.Writer = cmd.OutOrStdout()
	if opts.Format == "json" {
		progress = io.Discard
	}

	s := suite.New(suite.Options{
		Table:      table,
		Golden:     goldens,
		Runner:     sim,
		Comparator: compare.New(cfg.Anchors...),
		TraceDir:   cfg.TraceDir,
		Skip:       cfg.SkipSet(),
		KeepGoing:  cfg.KeepGoing,
		Repeat:     opts.Repeat,
		Update:     opts.Update,
		Recorder:   rec,
		Progress:   progress,
		Logger:     logger,
	})

	formatter.VerboseLog("simulator %s, golden files in %s, traces in %s", cfg.Simulator, cfg.GoldenDir, cfg.TraceDir)
	logger.Debug("starting run", "scenarios", len(table), "simulator", cfg.Simulator, "golden_dir", cfg.GoldenDir)
	rep, runErr := s.Run(ctx)

	if ledger != nil {
		ledger.finish(runStatus(runErr))
	}

	return outputRun(formatter, runID, rep, runErr)
}

// watchSignals cancels the run on the first SIGINT or SIGTERM so it can wind
// down and record its status. A second signal exits immediately through
// atexit, which still finalises an open history run.
func watchSignals(cancel context.CancelFunc, logger *slog.Logger) func() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, cancelling run", "signal", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigChan:
			logger.Error("received second signal, exiting", "signal", sig)
			atexit.Exit(ExitCommandError)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func outputRun(f *OutputFormatter, runID string, rep *suite.Report, runErr error) error {
	result := RunResult{Report: rep}
	if rep != nil {
		result.Passed = rep.Passed()
		result.Failed = rep.Failed()
		result.Skipped = rep.Skipped()
		result.Updated = rep.Updated()
		result.Total = len(rep.Outcomes)
	}

	if runErr == nil {
		if f.Format == "json" {
			return f.Encode(CLIResponse{Status: "ok", Data: result, RunID: runID})
		}
		fmt.Fprintln(f.Writer)
		if result.Updated > 0 {
			fmt.Fprintf(f.Writer, "Summary: %d golden file(s) updated, %d skipped\n", result.Updated, result.Skipped)
		} else {
			fmt.Fprintf(f.Writer, "Summary: %d passed, %d skipped, %d total\n", result.Passed, result.Skipped, result.Total)
		}
		if runID != "" {
			fmt.Fprintf(f.Writer, "Run: %s\n", runID)
		}
		return nil
	}

	code, errCode := classifyRunError(runErr)
	exitErr := WrapExitError(code, "run failed", runErr)
	if f.Format == "json" {
		exitErr.reported = true
		if err := f.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errCode, Message: runErr.Error()},
			RunID:  runID,
		}); err != nil {
			return err
		}
	} else if rep != nil {
		fmt.Fprintln(f.Writer)
		fmt.Fprintf(f.Writer, "Summary: %d passed, %d failed, %d skipped, %d evaluated\n",
			result.Passed, result.Failed, result.Skipped, result.Total)
		if runID != "" {
			fmt.Fprintf(f.Writer, "Run: %s\n", runID)
		}
	}
	return exitErr
}
