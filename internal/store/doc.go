// Package store provides SQLite-backed persistence for scheduled operations,
// maintenance holds and the step activity log.
//
// # Tables
//
//   - operations: one row per operation, the full snapshot (transfer lines and
//     step ledgers) as a JSON body
//   - holds: maintenance and outage windows
//   - activity: append-only audit of complete/undo/rework mutations
//
// # Ordering
//
// Every row carries a seq INTEGER from the engine's logical clock. All list
// queries use ORDER BY seq ASC, id COLLATE BINARY ASC so reads are identical
// across runs regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: activity rows must reference a stored operation
package store
