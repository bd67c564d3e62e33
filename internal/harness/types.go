package harness

import "github.com/roach88/terminalops/internal/model"

// Outcome of a flow step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one replayed flow step.
type TraceEvent struct {
	Step      int      `json:"step"`
	Action    string   `json:"action"`
	Operation string   `json:"operation"`
	Transfer  string   `json:"transfer,omitempty"`
	Event     string   `json:"event,omitempty"`
	Loop      int      `json:"loop,omitempty"`
	Outcome   string   `json:"outcome"`
	Reset     []string `json:"reset,omitempty"`
}

// OperationSummary is the final state of one operation.
type OperationSummary struct {
	ID         string                `json:"id"`
	Status     model.OperationStatus `json:"status"`
	Badge      string                `json:"badge"`
	Percentage float64               `json:"percentage"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Operations is the final board, in scheduling order.
	Operations []OperationSummary `json:"operations"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Operations: []OperationSummary{},
		Errors:     []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
