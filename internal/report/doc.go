// Package report turns simulator statistics text into token-lines.
//
// Both the golden files and the captured simulator output go through the same
// tokenizer so the comparator only ever sees opaque whitespace-delimited
// tokens. Numbers, percentages and labels are not interpreted.
package report
