package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Table  string
	Traces string
}

// ListEntry describes one scenario in JSON output.
type ListEntry struct {
	Index int      `json:"index"`
	Name  string   `json:"name,omitempty"`
	Args  []string `json:"args"`
	Skip  string   `json:"skip,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenario battery",
		Long: `Print every scenario with the simulator arguments it is run with.

Examples:
  cachecheck list
  cachecheck list --table scenarios.cue
  cachecheck list --format json`,
		Args:          opts.positional(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportCommandError(opts.formatter(cmd), listScenarios(opts, cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "scenario table file (.yaml or .cue)")
	cmd.Flags().StringVar(&opts.Traces, "traces", "", "trace file directory (default traces)")

	cmd.SetFlagErrorFunc(opts.flagError)

	return cmd
}

func listScenarios(opts *ListOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("table") {
		cfg.Table = opts.Table
	}
	if cmd.Flags().Changed("traces") {
		cfg.TraceDir = opts.Traces
	}

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	skips := table.Skips()
	for idx, reason := range cfg.SkipSet() {
		if _, ok := skips[idx]; !ok {
			skips[idx] = reason
		}
	}

	entries := make([]ListEntry, 0, len(table))
	for _, sc := range table {
		entries = append(entries, ListEntry{
			Index: sc.Index,
			Name:  sc.Name,
			Args:  sc.Args(cfg.TraceDir),
			Skip:  skips[sc.Index],
		})
	}

	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(entries)
	}
	writeScenarioList(f.Writer, entries)
	return nil
}

func writeScenarioList(w io.Writer, entries []ListEntry) {
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%2d  %-20s  %s", e.Index, name, strings.Join(e.Args, " "))
		if e.Skip != "" {
			fmt.Fprintf(w, "  [skip: %s]", e.Skip)
		}
		fmt.Fprintln(w)
	}
}
