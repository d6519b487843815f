package cli

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/roach88/cachecheck/internal/store"
)

// abortMessage is stored for runs that never reached a final status.
const abortMessage = "interrupted before the run finished"

// runLedger owns one run row in the history database. The row is closed
// out exactly once: by finish on the normal path, or by abort from a defer
// or an atexit handler when the process leaves early.
type runLedger struct {
	once   sync.Once
	db     *store.Store
	runID  string
	logger *slog.Logger
}

// openLedger opens the database, starts a run and registers abort with
// atexit so a forced exit still finalises the row and closes the database.
func openLedger(ctx context.Context, path, simulator, goldenDir string, logger *slog.Logger) (*runLedger, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	runID, err := db.BeginRun(ctx, simulator, goldenDir)
	if err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "failed to record run", err)
	}

	l := &runLedger{db: db, runID: runID, logger: logger}
	atexit.Register(l.abort)
	return l, nil
}

// Recorder returns the suite recorder writing into this run.
func (l *runLedger) Recorder() *store.Recorder {
	return l.db.NewRecorder(l.runID)
}

// finish stores the final status and closes the database. Later calls are
// no-ops. A fresh context is used so an interrupted run is still closed out.
func (l *runLedger) finish(status, message string) {
	l.once.Do(func() {
		if err := l.db.FinishRun(context.Background(), l.runID, status, message); err != nil {
			l.logger.Error("failed to finish run", "run_id", l.runID, "error", err)
		}
		if err := l.db.Close(); err != nil {
			l.logger.Error("error closing database", "error", err)
		}
	})
}

func (l *runLedger) abort() {
	l.finish(store.RunError, abortMessage)
}

// runStatus maps a suite error onto the stored run status.
func runStatus(runErr error) (string, string) {
	if runErr == nil {
		return store.RunPassed, ""
	}
	if code, _ := classifyRunError(runErr); code == ExitFailure {
		return store.RunFailed, runErr.Error()
	}
	return store.RunError, runErr.Error()
}
