package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/cachecheck/internal/compare"
	"github.com/roach88/cachecheck/internal/golden"
	"github.com/roach88/cachecheck/internal/report"
	"github.com/roach88/cachecheck/internal/runner"
	"github.com/roach88/cachecheck/internal/scenario"
)

// Recorder receives every outcome as it is produced.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Options configures a Suite.
type Options struct {
	Table      scenario.Table
	Golden     *golden.Store
	Runner     runner.CommandRunner
	Comparator *compare.Comparator

	// TraceDir is joined onto relative trace paths.
	TraceDir string

	// Skip adds non-deterministic scenarios to those flagged in the table.
	Skip map[int]string

	// KeepGoing continues past mismatches and reports all of them.
	KeepGoing bool

	// Repeat runs each compared scenario this many times. Values below one
	// mean once.
	Repeat int

	// Update writes the simulator output as the new golden file instead of
	// comparing.
	Update bool

	Recorder Recorder

	// Progress receives the per-scenario trace and failure diagnostics.
	Progress io.Writer
	Logger   *slog.Logger
}

// Suite evaluates a scenario table.
type Suite struct {
	opts  Options
	skips map[int]string
}

// New returns a suite. Missing Comparator, Progress and Logger fall back to
// the default comparator, io.Discard and a discarding logger.
func New(opts Options) *Suite {
	if opts.Comparator == nil {
		opts.Comparator = compare.Default()
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}

	skips := opts.Table.Skips()
	for idx, reason := range opts.Skip {
		if reason == "" {
			reason = "non-deterministic output"
		}
		skips[idx] = reason
	}
	return &Suite{opts: opts, skips: skips}
}

// SkipReason returns why a scenario is skipped, if it is.
func (s *Suite) SkipReason(index int) (string, bool) {
	reason, ok := s.skips[index]
	return reason, ok
}

// Run evaluates every scenario in table order.
//
// The returned report always holds the outcomes produced so far. On a
// golden, launch or recorder error the report is marked halted and the error
// is returned. Mismatches return a *MismatchError.
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	if s.opts.Golden == nil || s.opts.Runner == nil {
		return nil, fmt.Errorf("suite requires a golden store and a runner")
	}

	rep := &Report{Outcomes: make([]Outcome, 0, len(s.opts.Table))}
	var first *Outcome // first failure

	for i, sc := range s.opts.Table {
		if err := ctx.Err(); err != nil {
			rep.Halted = true
			return rep, err
		}

		o, err := s.evaluate(ctx, sc)
		if err != nil {
			rep.Halted = true
			return rep, fmt.Errorf("scenario %d: %w", sc.Index, err)
		}

		rep.Outcomes = append(rep.Outcomes, o)
		if s.opts.Recorder != nil {
			if err := s.opts.Recorder.Record(ctx, o); err != nil {
				rep.Halted = true
				return rep, fmt.Errorf("record scenario %d: %w", sc.Index, err)
			}
		}

		if o.Status != StatusFail {
			continue
		}
		if first == nil {
			first = &o
		}
		if !s.opts.KeepGoing {
			rep.Halted = i < len(s.opts.Table)-1
			return rep, &MismatchError{Outcome: *first, Failures: 1}
		}
	}

	if first != nil {
		return rep, &MismatchError{Outcome: *first, Failures: rep.Failed()}
	}
	return rep, nil
}

// evaluate produces the outcome for one scenario. Errors are fatal to the run.
func (s *Suite) evaluate(ctx context.Context, sc scenario.Scenario) (Outcome, error) {
	w := s.opts.Progress
	log := s.opts.Logger.With("scenario", sc.Index)
	o := Outcome{Scenario: sc.Index, Name: sc.Name}

	fmt.Fprintf(w, "*****TEST***** %d\n", sc.Index)

	if reason, ok := s.skips[sc.Index]; ok {
		fmt.Fprintf(w, "Skipping test %d: %s\n", sc.Index, reason)
		log.Info("scenario skipped", "reason", reason)
		o.Status = StatusSkip
		o.Reason = reason
		return o, nil
	}

	args := sc.Args(s.opts.TraceDir)

	if s.opts.Update {
		out, err := s.opts.Runner.Run(ctx, args)
		if err != nil {
			return o, err
		}
		if err := s.opts.Golden.Write(sc.Index, out); err != nil {
			return o, err
		}
		fmt.Fprintf(w, "Updated %s\n", s.opts.Golden.Path(sc.Index))
		log.Info("golden updated", "path", s.opts.Golden.Path(sc.Index), "bytes", len(out))
		o.Status = StatusUpdated
		return o, nil
	}

	want, err := s.opts.Golden.Load(sc.Index)
	if err != nil {
		return o, err
	}

	for run := 1; run <= s.opts.Repeat; run++ {
		log.Debug("invoking simulator", "args", strings.Join(args, " "), "run", run)
		out, err := s.opts.Runner.Run(ctx, args)
		if err != nil {
			return o, err
		}
		got, err := report.Tokenize(out)
		if err != nil {
			return o, err
		}

		res := s.opts.Comparator.Compare(want, got)
		if !res.Match {
			o = failedOutcome(o, run, res)
			s.printMismatch(o)
			log.Warn("scenario failed", "golden_line", o.GoldenLine, "actual_line", o.ActualLine, "run", run)
			return o, nil
		}
		log.Debug("scenario matched", "golden_lines", len(want), "actual_lines", len(got), "run", run)
	}

	log.Info("scenario passed")
	o.Status = StatusPass
	return o, nil
}

func (s *Suite) printMismatch(o Outcome) {
	w := s.opts.Progress
	fmt.Fprintf(w, "INCORRECT on test %d\n", o.Scenario)
	fmt.Fprintf(w, "Expected (golden line %d):\n %v\n", o.GoldenLine, o.Expected)
	if o.Missing {
		fmt.Fprintln(w, "Program output:\n <end of output>")
		return
	}
	fmt.Fprintf(w, "Program output (line %d):\n %v\n", o.ActualLine, o.Actual)
}
