package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/terminalops/internal/model"
)

// Scenario is one lifecycle conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Terminal is the directory holding the terminal CUE files. Relative
	// paths are resolved against the scenario file's directory.
	Terminal string `yaml:"terminal"`

	// Gate turns on the engine's validation gate.
	Gate bool `yaml:"gate,omitempty"`

	// Operations are scheduled in order before the flow runs.
	Operations []model.Operation `yaml:"operations"`

	// Holds are added after the operations are scheduled.
	Holds []model.Hold `yaml:"holds,omitempty"`

	// Flow contains the step actions to replay.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Flow action names.
const (
	ActionComplete = "complete"
	ActionUndo     = "undo"
	ActionRework   = "rework"
	ActionStatus   = "status"
)

var flowActions = []string{ActionComplete, ActionUndo, ActionRework, ActionStatus}

// FlowStep is one engine call.
type FlowStep struct {
	Action    string `yaml:"action"`
	Operation string `yaml:"operation"`

	// Transfer selects the ledger; empty selects the shared ledger.
	Transfer string `yaml:"transfer,omitempty"`
	Event    string `yaml:"event,omitempty"`

	// Loop is the target loop for complete and undo (0 = latest) and the
	// base loop for rework.
	Loop   int    `yaml:"loop,omitempty"`
	Actor  string `yaml:"actor,omitempty"`
	Reason string `yaml:"reason,omitempty"`

	// Status is the new status for the status action.
	Status model.OperationStatus `yaml:"status,omitempty"`

	// Expect specifies the expected outcome. Nil means the call must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Error is the expected sequence or runtime error code.
	Error string `yaml:"error,omitempty"`

	// Reset lists the steps an undo is expected to revert.
	Reset []string `yaml:"reset,omitempty"`

	// Loop is the loop number a rework is expected to create.
	Loop int `yaml:"loop,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	Type      string `yaml:"type"`
	Operation string `yaml:"operation"`
	Transfer  string `yaml:"transfer,omitempty"`
	Event     string `yaml:"event,omitempty"`
	Loop      int    `yaml:"loop,omitempty"`

	// State is the expected derived step state (step_state).
	State string `yaml:"state,omitempty"`

	// Percentage is the expected progress (progress).
	Percentage *float64 `yaml:"percentage,omitempty"`

	// Valid is the expected validation outcome (valid). Codes, if present,
	// must equal the issue codes in order.
	Valid *bool    `yaml:"valid,omitempty"`
	Codes []string `yaml:"codes,omitempty"`

	// Count is the expected number of activity entries (activity_count).
	Count *int `yaml:"count,omitempty"`

	// Status is the expected operation status (status).
	Status model.OperationStatus `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertActiveStep    = "active_step"
	AssertStepState     = "step_state"
	AssertProgress      = "progress"
	AssertValid         = "valid"
	AssertActivityCount = "activity_count"
	AssertStatus        = "status"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly. The terminal path is resolved against the
// scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Terminal != "" && !filepath.IsAbs(scenario.Terminal) {
		scenario.Terminal = filepath.Join(filepath.Dir(path), scenario.Terminal)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// DiscoverScenarios returns the *.yaml and *.yml files under dir, sorted.
func DiscoverScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return paths, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Terminal == "" {
		return fmt.Errorf("terminal is required")
	}
	if _, err := os.Stat(s.Terminal); os.IsNotExist(err) {
		return fmt.Errorf("terminal directory not found: %s", s.Terminal)
	}
	if len(s.Operations) == 0 {
		return fmt.Errorf("operations list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, op := range s.Operations {
		if op.ID == "" {
			return fmt.Errorf("operations[%d]: id is required", i)
		}
	}

	for i, step := range s.Flow {
		if !slices.Contains(flowActions, step.Action) {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Action)
		}
		if step.Operation == "" {
			return fmt.Errorf("flow[%d]: operation is required", i)
		}
		switch step.Action {
		case ActionComplete, ActionUndo:
			if step.Event == "" {
				return fmt.Errorf("flow[%d]: event is required for %s", i, step.Action)
			}
		case ActionStatus:
			if step.Status == "" {
				return fmt.Errorf("flow[%d]: status is required for status", i)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Operation == "" {
		return fmt.Errorf("assertions[%d]: operation is required", index)
	}

	switch a.Type {
	case AssertActiveStep:
	case AssertStepState:
		if a.Event == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: event and state are required for step_state", index)
		}
	case AssertProgress:
		if a.Percentage == nil {
			return fmt.Errorf("assertions[%d]: percentage is required for progress", index)
		}
	case AssertValid:
		if a.Valid == nil {
			return fmt.Errorf("assertions[%d]: valid is required for valid", index)
		}
	case AssertActivityCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for activity_count", index)
		}
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
