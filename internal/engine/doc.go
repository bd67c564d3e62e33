// Package engine drives the operation lifecycle on behalf of a host: it loads
// an operation from a Repository, optionally gates on plan validation,
// applies one step-ledger mutation, and persists the result together with an
// activity entry.
//
// CONCURRENCY:
//
// The ledger itself does no locking. The engine serializes mutations per
// operation ID with an in-process mutex, and each mutation works on a fresh
// snapshot loaded from the repository, so two edits never share memory.
// Mutations of different operations proceed in parallel. Queries (Validate,
// Progress, Board, HoldImpact) take no lock.
//
// ORDERING:
//
// Every persisted write is stamped with a seq from the logical Clock. Wall
// time (WithWallClock) is only recorded on step records and activity entries
// for display; it never orders anything.
//
// ERRORS:
//
// Sequencing failures come back as *ledger.SequenceError. A well-behaved UI
// never offers an out-of-order action, so they are logged at Error as host
// defects. Everything the engine itself rejects is a *RuntimeError.
package engine
