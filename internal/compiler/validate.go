package compiler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/terminalops/internal/checklist"
)

// Validation error codes (E201-E209)
const (
	ErrUnknownInfrastructureTank = "E201" // infrastructure wired to a tank that does not exist
	ErrUnknownAuthorizedTank     = "E202" // authorization row names a tank that does not exist
	ErrDuplicateAuthorization    = "E203" // same (customer, product) listed twice
	ErrUnknownProductGroup       = "E204" // compatibility rule references an unused group
	ErrDocklineWithoutGroup      = "E205" // dockline's last product has no group
	ErrDocklineUnknownInfra      = "E206" // dockline on infrastructure with no wiring
	ErrChecklistMarker           = "E207" // pump/rework marker is not a step
	ErrChecklistDuplicateStep    = "E208" // step listed twice in one checklist
	ErrTankOverCapacity          = "E209" // current volume above capacity
)

// ValidationError is one referential-integrity problem in a configuration.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks that every cross-reference in the configuration resolves.
// Returns all errors found (does not fail-fast), in a stable order.
func Validate(t *Terminal) []ValidationError {
	var errs []ValidationError
	spec := &t.Spec

	for _, id := range slices.Sorted(maps.Keys(spec.Tanks)) {
		tank := spec.Tanks[id]
		if tank.CurrentVolume > tank.Capacity {
			errs = append(errs, ValidationError{
				Field:   "tanks." + id,
				Message: fmt.Sprintf("current volume %g exceeds capacity %g", tank.CurrentVolume, tank.Capacity),
				Code:    ErrTankOverCapacity,
			})
		}
	}

	for _, id := range slices.Sorted(maps.Keys(spec.Infrastructure)) {
		for i, tank := range spec.Infrastructure[id] {
			if _, ok := spec.Tanks[tank]; !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("infrastructure.%q[%d]", id, i),
					Message: fmt.Sprintf("unknown tank %q", tank),
					Code:    ErrUnknownInfrastructureTank,
				})
			}
		}
	}

	seen := make(map[[2]string]int)
	for i, a := range spec.Authorizations {
		key := [2]string{a.Customer, a.Product}
		if first, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("authorizations[%d]", i),
				Message: fmt.Sprintf("%s / %s already authorized at authorizations[%d]", a.Customer, a.Product, first),
				Code:    ErrDuplicateAuthorization,
			})
		} else {
			seen[key] = i
		}
		for j, tank := range a.Tanks {
			if _, ok := spec.Tanks[tank]; !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("authorizations[%d].tanks[%d]", i, j),
					Message: fmt.Sprintf("unknown tank %q", tank),
					Code:    ErrUnknownAuthorizedTank,
				})
			}
		}
	}

	groups := make(map[string]bool)
	for _, g := range spec.ProductGroups {
		groups[g] = true
	}
	for i, c := range spec.Compatibility {
		for _, g := range []string{c.Last, c.Next} {
			if !groups[g] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("compatibility[%d]", i),
					Message: fmt.Sprintf("no product belongs to group %q", g),
					Code:    ErrUnknownProductGroup,
				})
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(spec.Docklines)) {
		product := spec.Docklines[id]
		field := fmt.Sprintf("docklines.%q", id)
		if _, ok := spec.Infrastructure[id]; !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("infrastructure %q is not wired to any tank", id),
				Code:    ErrDocklineUnknownInfra,
			})
		}
		if _, ok := spec.ProductGroups[product]; product != "" && !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("product %q has no product group", product),
				Code:    ErrDocklineWithoutGroup,
			})
		}
	}

	errs = append(errs, validateChecklists("checklists", spec.Checklists)...)
	errs = append(errs, validateChecklists("shared_checklists", spec.SharedChecklists)...)

	return errs
}

func validateChecklists(prefix string, lists map[string]checklist.Checklist) []ValidationError {
	var errs []ValidationError
	for _, m := range slices.Sorted(maps.Keys(lists)) {
		cl := lists[m]
		field := prefix + "." + m

		counts := make(map[string]int)
		for _, step := range cl.Steps {
			counts[step]++
			if counts[step] == 2 {
				errs = append(errs, ValidationError{
					Field:   field + ".steps",
					Message: fmt.Sprintf("step %q listed more than once", step),
					Code:    ErrChecklistDuplicateStep,
				})
			}
		}

		markers := []struct{ name, step string }{
			{"pump_start", cl.PumpStart},
			{"pump_stop", cl.PumpStop},
			{"rework_gate", cl.ReworkGate},
		}
		for _, mk := range markers {
			if mk.step != "" && cl.Position(mk.step) < 0 {
				errs = append(errs, ValidationError{
					Field:   field + "." + mk.name,
					Message: fmt.Sprintf("%q is not a step of the checklist", mk.step),
					Code:    ErrChecklistMarker,
				})
			}
		}
		start, stop := cl.Position(cl.PumpStart), cl.Position(cl.PumpStop)
		if start >= 0 && stop >= 0 && start > stop {
			errs = append(errs, ValidationError{
				Field:   field + ".pump_stop",
				Message: fmt.Sprintf("%q comes before %q", cl.PumpStop, cl.PumpStart),
				Code:    ErrChecklistMarker,
			})
		}
	}
	return errs
}
