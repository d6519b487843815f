package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cachecheck/internal/suite"
)

// Run statuses.
const (
	RunRunning = "running"
	RunPassed  = "passed"
	RunFailed  = "failed"
	RunError   = "error"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded harness invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"` // nil while running or after an interrupted run
	Simulator  string    `json:"simulator"`
	GoldenDir  string    `json:"golden_dir"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
}

// BeginRun inserts a new run in the running state and returns its ID.
func (s *Store) BeginRun(ctx context.Context, simulator, goldenDir string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, simulator, golden_dir, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, s.now().UTC().Format(time.RFC3339Nano), simulator, goldenDir, RunRunning)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, message = ?
		WHERE id = ?
	`, s.now().UTC().Format(time.RFC3339Nano), status, message, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// WriteOutcome appends a scenario outcome to a run.
// Writing the same scenario twice for a run is silently ignored.
func (s *Store) WriteOutcome(ctx context.Context, runID string, o suite.Outcome) error {
	expected, err := json.Marshal(nonNil(o.Expected))
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	actual, err := json.Marshal(nonNil(o.Actual))
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(run_id, scenario, name, status, reason, repeat_run, golden_line, actual_line, expected, actual, missing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, scenario) DO NOTHING
	`,
		runID,
		o.Scenario,
		o.Name,
		string(o.Status),
		o.Reason,
		o.Run,
		o.GoldenLine,
		o.ActualLine,
		string(expected),
		string(actual),
		o.Missing,
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

func nonNil(tokens []string) []string {
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// ListRuns returns the most recent runs first, at most limit of them.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, COALESCE(finished_at, ''), simulator, golden_dir, status, message
		FROM runs
		ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run by ID.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, COALESCE(finished_at, ''), simulator, golden_dir, status, message
		FROM runs WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return run, nil
}

// ReadOutcomes returns a run's outcomes in the order they were written.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]suite.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario, name, status, reason, repeat_run, golden_line, actual_line, expected, actual, missing
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []suite.Outcome{}
	for rows.Next() {
		var (
			o                suite.Outcome
			status           string
			expected, actual string
		)
		if err := rows.Scan(&o.Scenario, &o.Name, &status, &o.Reason, &o.Run,
			&o.GoldenLine, &o.ActualLine, &expected, &actual, &o.Missing); err != nil {
			return nil, fmt.Errorf("read outcomes: %w", err)
		}
		o.Status = suite.Status(status)
		if err := json.Unmarshal([]byte(expected), &o.Expected); err != nil {
			return nil, fmt.Errorf("read outcomes: expected tokens: %w", err)
		}
		if err := json.Unmarshal([]byte(actual), &o.Actual); err != nil {
			return nil, fmt.Errorf("read outcomes: actual tokens: %w", err)
		}
		if len(o.Expected) == 0 {
			o.Expected = nil
		}
		if len(o.Actual) == 0 {
			o.Actual = nil
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	return outcomes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                 Run
		started, finished string
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.Simulator, &run.GoldenDir, &run.Status, &run.Message); err != nil {
		return Run{}, err
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished != "" {
		at, err := time.Parse(time.RFC3339Nano, finished)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &at
	}
	return run, nil
}

// Recorder writes suite outcomes into one run.
type Recorder struct {
	store *Store
	runID string
}

// NewRecorder returns a suite.Recorder bound to runID.
func (s *Store) NewRecorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// Record implements suite.Recorder.
func (r *Recorder) Record(ctx context.Context, o suite.Outcome) error {
	return r.store.WriteOutcome(ctx, r.runID, o)
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

var _ suite.Recorder = (*Recorder)(nil)
