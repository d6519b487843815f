package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cachecheck/internal/golden"
	"github.com/roach88/cachecheck/internal/runner"
	"github.com/roach88/cachecheck/internal/suite"
)

// Exit codes for CLI commands.
const (
	ExitSuccess       = 0 // All non-skipped scenarios matched their golden files
	ExitFailure       = 1 // Simulator output diverged from a golden file
	ExitCommandError  = 2 // Command error (bad flags, unreadable table, database errors, etc.)
	ExitLaunchFailure = 3 // Simulator could not be started or exited non-zero
	ExitGoldenMissing = 4 // A non-skipped scenario has no golden file
)

// Error codes for JSON responses.
const (
	ErrCodeMismatch      = "E_MISMATCH"
	ErrCodeLaunch        = "E_LAUNCH"
	ErrCodeGoldenMissing = "E_GOLDEN_MISSING"
	ErrCodeCommand       = "E_COMMAND"
	ErrCodeInterrupted   = "E_INTERRUPTED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	reported bool // a JSON error response was already written
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) if the error is not an ExitError, such as
// cobra's unknown-command error. ExitFailure is only ever set explicitly.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// classifyRunError maps a suite error onto an exit code and JSON error code.
func classifyRunError(err error) (int, string) {
	switch {
	case errors.Is(err, suite.ErrMismatch):
		return ExitFailure, ErrCodeMismatch
	case errors.Is(err, runner.ErrLaunch):
		return ExitLaunchFailure, ErrCodeLaunch
	case errors.Is(err, golden.ErrMissing):
		return ExitGoldenMissing, ErrCodeGoldenMissing
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitCommandError, ErrCodeInterrupted
	default:
		return ExitCommandError, ErrCodeCommand
	}
}

// reportCommandError emits a JSON error response for command errors so that
// JSON consumers always receive one object. Other failures are reported by
// the command itself.
func reportCommandError(f *OutputFormatter, err error) error {
	if err == nil || f.Format != "json" || GetExitCode(err) != ExitCommandError {
		return err
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.reported {
		return err
	}
	if encErr := f.Error(ErrCodeCommand, err.Error(), nil); encErr != nil {
		return encErr
	}
	return err
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`           // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`   // success payload
	Error  *CLIError   `json:"error,omitempty"`  // error details
	RunID  string      `json:"run_id,omitempty"` // history run when --db is set
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E_MISMATCH", "E_LAUNCH", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Encode writes a prepared response as a single JSON line.
func (f *OutputFormatter) Encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
