// Package journal provides a SQLite-backed diagnostic log of engine activity.
//
// The journal is append-only and records, per run:
//   - Transitions: every observed state change (from, to, name, origin)
//   - Messages: every applied (topic, payload) and whether a rule matched
//   - Capacity events: declarations rejected by a full table
//
// It is a trace for operators and tests. Nothing reads it back into an
// engine: device state is never restored from the journal.
//
// # Ordering
//
// Entries are stamped with a per-run logical sequence number from Clock,
// never a wall-clock timestamp. Queries order by seq ASC. The sequence
// orders journal writes; with racing writers two transitions may be
// journaled in the opposite order from the one the engine applied.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
