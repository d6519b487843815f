// Package store keeps a SQLite history of harness runs.
//
// Each run gets a UUIDv7 identifier and one outcome row per scenario. The
// history lets a failing run be compared with earlier runs of the same
// simulator and golden directory.
//
// # Ordering
//
// Runs and outcomes are ordered by their seq column, never by timestamp.
// Timestamps are stored as RFC 3339 text for display only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: 5-second wait for locks
//   - foreign_keys=ON: Enforce referential integrity
package store
