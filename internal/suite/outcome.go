package suite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cachecheck/internal/compare"
)

// Status is the verdict for one scenario.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkip    Status = "skip"
	StatusUpdated Status = "updated"
)

// Outcome is the result of evaluating one scenario.
type Outcome struct {
	Scenario int    `json:"scenario"`
	Name     string `json:"name,omitempty"`
	Status   Status `json:"status"`

	// Reason is the skip reason for skipped scenarios.
	Reason string `json:"reason,omitempty"`

	// Run is the 1-based repetition that produced a failure.
	Run int `json:"run,omitempty"`

	// GoldenLine and ActualLine are 1-based positions of the divergence.
	GoldenLine int      `json:"golden_line,omitempty"`
	ActualLine int      `json:"actual_line,omitempty"`
	Expected   []string `json:"expected,omitempty"`
	Actual     []string `json:"actual,omitempty"`
	Missing    bool     `json:"missing,omitempty"`
}

func failedOutcome(o Outcome, run int, res compare.Result) Outcome {
	o.Status = StatusFail
	o.Run = run
	o.GoldenLine = res.GoldenLine + 1
	o.ActualLine = res.ActualLine + 1
	o.Expected = res.Expected
	o.Actual = res.Actual
	o.Missing = res.Missing
	return o
}

// Report collects outcomes in table order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`

	// Halted is set when the run stopped before the end of the table.
	Halted bool `json:"halted,omitempty"`
}

func (r *Report) count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Passed returns the number of passing scenarios.
func (r *Report) Passed() int { return r.count(StatusPass) }

// Failed returns the number of failing scenarios.
func (r *Report) Failed() int { return r.count(StatusFail) }

// Skipped returns the number of skipped scenarios.
func (r *Report) Skipped() int { return r.count(StatusSkip) }

// Updated returns the number of regenerated golden files.
func (r *Report) Updated() int { return r.count(StatusUpdated) }

// OK reports whether the run reached the end without failures.
func (r *Report) OK() bool {
	return !r.Halted && r.Failed() == 0
}

// ErrMismatch matches any MismatchError.
var ErrMismatch = errors.New("output does not match golden file")

// MismatchError reports the first divergence of a run.
type MismatchError struct {
	Outcome Outcome

	// Failures is the total number of failing scenarios. It exceeds one
	// only when the run kept going past the first failure.
	Failures int
}

func (e *MismatchError) Error() string {
	o := e.Outcome
	msg := fmt.Sprintf("scenario %d: golden line %d: expected %q", o.Scenario, o.GoldenLine, strings.Join(o.Expected, " "))
	if o.Missing {
		msg += ", output ended"
	} else {
		msg += fmt.Sprintf(", got %q", strings.Join(o.Actual, " "))
	}
	if e.Failures > 1 {
		msg += fmt.Sprintf(" (and %d more failing scenario(s))", e.Failures-1)
	}
	return msg
}

// Is lets errors.Is(err, ErrMismatch) match.
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}
