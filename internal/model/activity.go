package model

import "time"

// Action is the kind of step mutation recorded in the activity log.
type Action string

const (
	ActionComplete Action = "complete"
	ActionUndo     Action = "undo"
	ActionRework   Action = "rework"
)

// ActivityEntry is one audited step mutation. Entries are append-only and
// ordered by Seq, a logical clock value, never by At.
type ActivityEntry struct {
	ID          string    `json:"id" yaml:"id"`
	OperationID string    `json:"operation_id" yaml:"operation_id"`
	TransferID  string    `json:"transfer_id,omitempty" yaml:"transfer_id,omitempty"`
	Action      Action    `json:"action" yaml:"action"`
	Event       string    `json:"event,omitempty" yaml:"event,omitempty"`
	Loop        int       `json:"loop" yaml:"loop"`
	Actor       string    `json:"actor,omitempty" yaml:"actor,omitempty"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	At          time.Time `json:"at" yaml:"at"`
	Seq         int64     `json:"seq" yaml:"seq"`
}
