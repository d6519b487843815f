package testutil

import (
	"context"
	"path/filepath"
	"sync"
)

// ScriptedRunner is a simulator stand-in that answers by trace file name,
// the last element of the argument vector.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   [][]string
}

// NewScriptedRunner returns a runner that prints outputs[trace].
func NewScriptedRunner(outputs map[string]string) *ScriptedRunner {
	r := &ScriptedRunner{outputs: map[string]string{}, errs: map[string]error{}}
	for trace, out := range outputs {
		r.outputs[trace] = out
	}
	return r
}

// SetOutput replaces the report printed for trace.
func (r *ScriptedRunner) SetOutput(trace, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[trace] = output
}

// Fail makes every run against trace return err.
func (r *ScriptedRunner) Fail(trace string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[trace] = err
}

// Run implements runner.CommandRunner. Unknown traces produce empty output.
func (r *ScriptedRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), args...))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, nil
	}
	trace := filepath.Base(args[len(args)-1])
	if err := r.errs[trace]; err != nil {
		return nil, err
	}
	return []byte(r.outputs[trace]), nil
}

// Calls returns a copy of every argument vector received so far.
func (r *ScriptedRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}
