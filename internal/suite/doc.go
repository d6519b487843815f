// Package suite runs the scenario table against the simulator.
//
// A Suite is a fold over the scenario table: each scenario either is skipped,
// passes or fails, and the outcomes are collected into a Report in table
// order. Nothing in the package terminates the process; the caller decides
// what a failure means.
//
// Execution is strictly sequential. The only blocking call is the simulator
// invocation, which honors the context passed to Run.
//
// Error kinds:
//
//   - golden.ErrMissing: a non-skipped scenario has no readable golden file.
//   - runner.ErrLaunch: the simulator could not start or exited non-zero.
//   - ErrMismatch: the comparator found a divergence.
//
// The first two always stop the run. A mismatch stops the run unless
// Options.KeepGoing is set.
package suite
