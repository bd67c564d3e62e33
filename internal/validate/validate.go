// Package validate decides whether a scheduled operation is safe and
// consistent with the terminal's master data and maintenance holds.
//
// Validate is pure: it reads the snapshot it is given, never mutates it, and
// returns every issue it finds rather than stopping at the first. Hosts call
// it on every interaction, so it keeps no cache.
//
// Checks run per transfer line, in this order:
//
//  1. the line has an infrastructure ID
//  2. non-truck lines have at least one transfer
//  3. per transfer: the customer is authorized for the product on some tank,
//     and one of those tanks is reachable from the infrastructure
//  4. per transfer: tank-side endpoints are filled in
//  5. per transfer: the tank exists, stays under safe fill and above empty
//  6. per transfer: the product is compatible with the dockline's last product
//  7. per line: no enforced hold overlaps the operation window
package validate

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/conflict"
	"github.com/roach88/terminalops/internal/model"
)

var safeFillRatio = decimal.NewFromFloat(model.SafeFillRatio)

// Validate checks op against cfg and holds.
func Validate(op *model.Operation, cfg *model.TerminalConfig, holds []model.Hold) Result {
	v := &validator{op: op, cfg: cfg}
	start, end := op.Window()

	for i := range op.TransferLines {
		line := &op.TransferLines[i]

		if line.InfrastructureID == "" {
			v.add(Issue{Code: IssueMissingInfrastructure, Line: i})
		}
		if len(line.Transfers) == 0 && op.Modality != checklist.ModalityTruck {
			v.add(Issue{Code: IssueNoTransfers, Line: i, Infrastructure: line.InfrastructureID})
		}

		for j := range line.Transfers {
			t := &line.Transfers[j]
			v.checkAuthorization(i, line, t)
			v.checkEndpoints(i, line, t)
			v.checkInventory(i, line, t)
			v.checkCompatibility(i, line, t)
		}

		if line.InfrastructureID != "" {
			for _, h := range conflict.Conflicts(line.InfrastructureID, line.Tanks(), start, end, holds) {
				v.add(Issue{
					Code:           IssueHoldConflict,
					Line:           i,
					Infrastructure: line.InfrastructureID,
					Tank:           h.Tank,
					HoldID:         h.ID,
					HoldReason:     h.Reason,
				})
			}
		}
	}

	return Result{IsValid: len(v.issues) == 0, Issues: v.issues}
}

type validator struct {
	op     *model.Operation
	cfg    *model.TerminalConfig
	issues []Issue
}

func (v *validator) add(issue Issue) {
	v.issues = append(v.issues, issue)
}

func base(code IssueCode, line int, l *model.TransferLine, t *model.Transfer) Issue {
	return Issue{
		Code:           code,
		Line:           line,
		Infrastructure: l.InfrastructureID,
		TransferID:     t.ID,
		Customer:       t.Customer,
		Product:        t.Product,
	}
}

func (v *validator) checkAuthorization(i int, l *model.TransferLine, t *model.Transfer) {
	if t.Customer == "" || t.Product == "" || l.InfrastructureID == "" || !t.Direction.TouchesTank() {
		return
	}

	authorized := v.cfg.AuthorizedTanks(t.Customer, t.Product)
	if len(authorized) == 0 {
		v.add(base(IssueNoTanksConfigured, i, l, t))
		return
	}

	reachable := v.cfg.Infrastructure[l.InfrastructureID]
	for _, tank := range authorized {
		if slices.Contains(reachable, tank) {
			return
		}
	}
	v.add(base(IssueNoReachableTank, i, l, t))
}

func (v *validator) checkEndpoints(i int, l *model.TransferLine, t *model.Transfer) {
	if t.Direction.IntoTank() && t.To == "" {
		v.add(base(IssueMissingToTank, i, l, t))
	}
	if t.Direction.OutOfTank() && t.From == "" {
		v.add(base(IssueMissingFromTank, i, l, t))
	}
}

func (v *validator) checkInventory(i int, l *model.TransferLine, t *model.Transfer) {
	planned := decimal.NewFromFloat(t.PlannedTonnes)

	if tankID := t.InboundTank(); tankID != "" {
		if tank, ok := v.tank(i, l, t, tankID); ok {
			projected := decimal.NewFromFloat(tank.CurrentVolume).Add(planned)
			safeFill := decimal.NewFromFloat(tank.Capacity).Mul(safeFillRatio)
			if projected.GreaterThan(safeFill) {
				issue := base(IssueSafeFillExceeded, i, l, t)
				issue.Tank = tankID
				issue.Amount = projected.Sub(safeFill).InexactFloat64()
				v.add(issue)
			}
		}
	}

	if tankID := t.OutboundTank(); tankID != "" {
		if tank, ok := v.tank(i, l, t, tankID); ok {
			projected := decimal.NewFromFloat(tank.CurrentVolume).Sub(planned)
			if projected.IsNegative() {
				issue := base(IssueInsufficientStock, i, l, t)
				issue.Tank = tankID
				issue.Amount = projected.Neg().InexactFloat64()
				v.add(issue)
			}
		}
	}
}

// tank looks up tankID and records a TANK_NOT_FOUND issue if it is missing.
func (v *validator) tank(i int, l *model.TransferLine, t *model.Transfer, tankID string) (model.TankState, bool) {
	tank, ok := v.cfg.Tanks[tankID]
	if !ok {
		issue := base(IssueTankNotFound, i, l, t)
		issue.Tank = tankID
		v.add(issue)
	}
	return tank, ok
}

func (v *validator) checkCompatibility(i int, l *model.TransferLine, t *model.Transfer) {
	if t.Product == "" {
		return
	}
	last, ok := v.cfg.Docklines[l.InfrastructureID]
	if !ok || last == "" {
		return
	}
	lastGroup, okLast := v.cfg.ProductGroups[last]
	group, okNext := v.cfg.ProductGroups[t.Product]
	if !okLast || !okNext {
		return
	}
	if v.cfg.CompatibilityOf(lastGroup, group) != model.Incompatible {
		return
	}

	issue := base(IssueIncompatibleProduct, i, l, t)
	issue.ProductGroup = group
	issue.LastProduct = last
	issue.LastGroup = lastGroup
	v.add(issue)
}
