// Package runner invokes the external cache simulator.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrLaunch matches any LaunchError.
var ErrLaunch = errors.New("simulator launch failed")

// CommandRunner runs the simulator with an argument vector and returns its
// complete standard output.
type CommandRunner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// LaunchError reports a simulator that could not be started or that exited
// with a non-zero status.
type LaunchError struct {
	Argv     []string
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("run %q failed: %v", e.Argv, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrLaunch) match.
func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunch
}

// ExecRunner executes a simulator binary on the host.
type ExecRunner struct {
	// Binary is the simulator executable.
	Binary string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env entries are appended to the inherited environment.
	Env []string
}

// Run blocks until the simulator exits. Stdout is returned; stderr is kept
// only for the error message.
func (r ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	argv := append([]string{r.Binary}, args...)
	if r.Binary == "" {
		return nil, &LaunchError{Argv: argv, ExitCode: -1, Err: fmt.Errorf("no simulator binary configured")}
	}

	// #nosec G204 -- argv comes from the scenario table.
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir
	if len(r.Env) != 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Killed by cancellation or deadline, not a simulator failure.
			return stdout.Bytes(), fmt.Errorf("run %q interrupted: %w", argv, ctxErr)
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.Bytes(), &LaunchError{Argv: argv, ExitCode: code, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
