// Package harness runs lifecycle scenarios against a real engine.
//
// A scenario schedules operations against a terminal configuration, replays
// a flow of step actions and checks the resulting ledgers, progress,
// validation and activity log.
//
// # Scenario Format
//
//	name: truck_happy_path
//	description: "Load a truck end to end"
//	terminal: ../../../../testdata/terminal
//	gate: false
//	operations:
//	  - id: TRK-1
//	    modality: Truck
//	    eta: 2026-03-01T08:00:00Z
//	    duration_hours: 2
//	    transfer_lines: [...]
//	holds: []
//	flow:
//	  - action: complete
//	    operation: TRK-1
//	    transfer: TRK-1-t1
//	    event: Arrived
//	  - action: undo
//	    operation: TRK-1
//	    transfer: TRK-1-t1
//	    event: Arrived
//	    expect: { error: NOT_COMPLETE }
//	assertions:
//	  - type: active_step
//	    operation: TRK-1
//	    transfer: TRK-1-t1
//	    event: On Bay
//
// Flow actions are complete, undo, rework and status. A step without an
// expect clause must succeed.
//
// # Assertion Types
//
//   - active_step: the Active step of a ledger (empty event: none)
//   - step_state: the derived state of one step in one loop
//   - progress: the progress percentage of an operation
//   - valid: the validation outcome and, optionally, the issue codes
//   - activity_count: the number of activity entries of an operation
//   - status: the operation status
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, a logical clock starting at 0, a
// wall clock that starts at 2026-01-01T00:00:00Z and advances one minute per
// step, and sequential activity IDs, so golden snapshots are byte-stable.
package harness
