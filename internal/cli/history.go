package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cachecheck/internal/store"
	"github.com/roach88/cachecheck/internal/suite"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// RunDetail is the JSON payload for a single recorded run.
type RunDetail struct {
	Run      store.Run       `json:"run"`
	Outcomes []suite.Outcome `json:"outcomes"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `List runs recorded with "run --db", newest first. With a run ID, print
the outcome of every scenario evaluated in that run.

Examples:
  cachecheck history --db history.db
  cachecheck history --db history.db --limit 5
  cachecheck history --db history.db 01926f3a-...`,
		Args:          opts.positional(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportCommandError(opts.formatter(cmd), showHistory(opts, cmd, args))
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite history database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = all)")

	cmd.SetFlagErrorFunc(opts.flagError)

	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = opts.Database
	}
	if cfg.Database == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	if len(args) == 0 {
		runs, err := db.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if f.Format == "json" {
			return f.Success(runs)
		}
		writeRuns(f.Writer, runs)
		return nil
	}

	run, err := db.ReadRun(ctx, args[0])
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %q not found", args[0]))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	outcomes, err := db.ReadOutcomes(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outcomes", err)
	}
	if f.Format == "json" {
		return f.Success(RunDetail{Run: run, Outcomes: outcomes})
	}
	writeRunDetail(f.Writer, run, outcomes)
	return nil
}

func writeRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-7s  %s\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Simulator)
	}
}

func writeRunDetail(w io.Writer, run store.Run, outcomes []suite.Outcome) {
	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:  %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Simulator: %s\n", run.Simulator)
	fmt.Fprintf(w, "Golden:    %s\n", run.GoldenDir)
	fmt.Fprintf(w, "Status:    %s\n", run.Status)
	if run.Message != "" {
		fmt.Fprintf(w, "Message:   %s\n", run.Message)
	}
	fmt.Fprintln(w)

	for _, o := range outcomes {
		fmt.Fprintf(w, "%2d  %-20s  %s", o.Scenario, o.Name, o.Status)
		switch o.Status {
		case suite.StatusSkip:
			fmt.Fprintf(w, "  (%s)", o.Reason)
		case suite.StatusFail:
			if o.Missing {
				fmt.Fprintf(w, "  golden line %d: %s / <end of output>", o.GoldenLine, strings.Join(o.Expected, " "))
			} else {
				fmt.Fprintf(w, "  golden line %d: %s / line %d: %s",
					o.GoldenLine, strings.Join(o.Expected, " "), o.ActualLine, strings.Join(o.Actual, " "))
			}
		}
		fmt.Fprintln(w)
	}
}
