// Package compare diffs golden and actual simulator reports.
//
// The simulator prints a different number of diagnostic lines depending on
// the configuration (an I-cache-only run versus a three-level data-cache
// run), but each statistics block starts with a fixed header line. The
// comparator uses those headers as anchors: when the golden document reaches
// a header, leading actual lines are skipped until the same header shows up.
// Everywhere else lines are compared positionally, token for token.
//
// Golden and actual documents each have their own cursor. Skipping actual
// lines during realignment never shifts the golden position.
package compare

import (
	"fmt"

	"github.com/roach88/cachecheck/internal/report"
)

// DefaultAnchors are the section headers the simulator prints.
var DefaultAnchors = []string{
	"I-Cache statistics:",
	"L1 D-Cache statistics:",
	"L2 D-Cache statistics:",
	"L3 D-Cache statistics:",
}

// Result is the outcome of one comparison.
type Result struct {
	Match bool

	// GoldenLine and ActualLine are 0-based positions of the first
	// divergence in each document.
	GoldenLine int
	ActualLine int

	Expected report.Line
	Actual   report.Line

	// Missing is set when the actual document ran out of lines.
	Missing bool
}

// String describes a mismatch in one line.
func (r Result) String() string {
	if r.Match {
		return "match"
	}
	if r.Missing {
		return fmt.Sprintf("golden line %d: expected %q, actual output ended", r.GoldenLine+1, r.Expected.String())
	}
	return fmt.Sprintf("golden line %d (actual line %d): expected %q, got %q",
		r.GoldenLine+1, r.ActualLine+1, r.Expected.String(), r.Actual.String())
}

// Comparator performs header-anchored comparisons.
type Comparator struct {
	anchors []report.Line
}

// New returns a comparator that realigns on the given header lines.
func New(anchors ...string) *Comparator {
	c := &Comparator{anchors: make([]report.Line, 0, len(anchors))}
	for _, a := range anchors {
		if line := report.ParseLine(a); len(line) > 0 {
			c.anchors = append(c.anchors, line)
		}
	}
	return c
}

// Default returns a comparator using DefaultAnchors.
func Default() *Comparator {
	return New(DefaultAnchors...)
}

// Anchors returns the header lines as text.
func (c *Comparator) Anchors() []string {
	out := make([]string, len(c.anchors))
	for i, a := range c.anchors {
		out[i] = a.String()
	}
	return out
}

// IsAnchor reports whether line is one of the section headers.
func (c *Comparator) IsAnchor(line report.Line) bool {
	for _, a := range c.anchors {
		if a.Equal(line) {
			return true
		}
	}
	return false
}

// Compare walks golden against actual and stops at the first divergence.
// Actual lines after the last golden line are ignored.
func (c *Comparator) Compare(golden, actual report.Document) Result {
	j := 0
	for i, want := range golden {
		if c.IsAnchor(want) {
			j = c.realign(want, actual, j)
		}

		if j >= len(actual) {
			return Result{GoldenLine: i, ActualLine: j, Expected: want, Missing: true}
		}
		if got := actual[j]; !got.Equal(want) {
			return Result{GoldenLine: i, ActualLine: j, Expected: want, Actual: got}
		}
		j++
	}
	return Result{Match: true, GoldenLine: len(golden), ActualLine: j}
}

// realign advances the actual cursor to the next occurrence of header,
// keeping at least one line in reach.
func (c *Comparator) realign(header report.Line, actual report.Document, j int) int {
	for len(actual)-j > 1 && !actual[j].Equal(header) {
		j++
	}
	return j
}
