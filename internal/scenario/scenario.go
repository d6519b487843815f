package scenario

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Simulator flags.
const (
	FlagICache = "-I"
	FlagDCache = "-D"
)

// Scenario is one simulator invocation.
type Scenario struct {
	// Index is the 1-based position in the table. It names the golden file.
	Index int `yaml:"-" json:"-"`

	// Name is a short human label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// ICache is the instruction-cache configuration, size:assoc:block:repl.
	ICache string `yaml:"icache" json:"icache"`

	// DCache lists data-cache level configurations in hierarchy order,
	// level:size:assoc:block:repl:write:alloc.
	DCache []string `yaml:"dcache,omitempty" json:"dcache,omitempty"`

	// Trace is the trace file path. Relative paths resolve against the
	// trace directory given to Args.
	Trace string `yaml:"trace" json:"trace"`

	// Skip, when set, is the reason this scenario's output cannot be
	// compared against a golden file.
	Skip string `yaml:"skip,omitempty" json:"skip,omitempty"`
}

// Args returns the argument vector passed to the simulator.
func (s Scenario) Args(traceDir string) []string {
	args := make([]string, 0, 2+2*len(s.DCache)+1)
	args = append(args, FlagICache, s.ICache)
	for _, level := range s.DCache {
		args = append(args, FlagDCache, level)
	}
	return append(args, s.TracePath(traceDir))
}

// TracePath resolves the trace file against traceDir.
func (s Scenario) TracePath(traceDir string) string {
	if traceDir == "" || filepath.IsAbs(s.Trace) {
		return s.Trace
	}
	return filepath.Join(traceDir, s.Trace)
}

// Levels returns the number of data-cache levels configured.
func (s Scenario) Levels() int {
	return len(s.DCache)
}

// String renders the scenario as a command line fragment.
func (s Scenario) String() string {
	return fmt.Sprintf("#%d %s", s.Index, strings.Join(s.Args(""), " "))
}

// Table is an ordered, 1-indexed list of scenarios.
type Table []Scenario

// Get returns the scenario with the given index.
func (t Table) Get(index int) (Scenario, bool) {
	for _, s := range t {
		if s.Index == index {
			return s, true
		}
	}
	return Scenario{}, false
}

// Select returns the scenarios whose indices are listed, in table order.
// An empty selection returns the whole table.
func (t Table) Select(indices []int) (Table, error) {
	if len(indices) == 0 {
		return t, nil
	}
	want := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if _, ok := t.Get(idx); !ok {
			return nil, fmt.Errorf("scenario %d not in table (1..%d)", idx, len(t))
		}
		want[idx] = true
	}
	out := make(Table, 0, len(want))
	for _, s := range t {
		if want[s.Index] {
			out = append(out, s)
		}
	}
	return out, nil
}

// numbered returns a copy of scenarios with indices assigned from 1.
func numbered(scenarios []Scenario) Table {
	t := make(Table, len(scenarios))
	for i, s := range scenarios {
		s.DCache = append([]string(nil), s.DCache...)
		s.Index = i + 1
		t[i] = s
	}
	return t
}

// Validate checks that the table can be run.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("scenario table is empty")
	}
	for i, s := range t {
		if s.Index != i+1 {
			return fmt.Errorf("scenarios[%d]: index %d out of sequence", i, s.Index)
		}
		if strings.TrimSpace(s.ICache) == "" {
			return fmt.Errorf("scenarios[%d]: icache is required", i)
		}
		if strings.TrimSpace(s.Trace) == "" {
			return fmt.Errorf("scenarios[%d]: trace is required", i)
		}
		for j, level := range s.DCache {
			if strings.TrimSpace(level) == "" {
				return fmt.Errorf("scenarios[%d].dcache[%d]: empty level configuration", i, j)
			}
		}
	}
	return nil
}
