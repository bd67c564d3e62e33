// Package model defines the operation snapshot and terminal configuration
// the lifecycle engine consumes.
//
// The engine never retains these values. Callers pass a snapshot per call and
// persist whatever comes back.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/ledger"
)

// OperationStatus is the host-managed lifecycle status of an operation.
type OperationStatus string

const (
	StatusPlanned   OperationStatus = "Planned"
	StatusActive    OperationStatus = "Active"
	StatusCompleted OperationStatus = "Completed"
	StatusCancelled OperationStatus = "Cancelled"
)

// Operation is one scheduled vessel call, truck order or rail placement.
type Operation struct {
	ID            string             `json:"id" yaml:"id"`
	Modality      checklist.Modality `json:"modality" yaml:"modality"`
	Status        OperationStatus    `json:"status" yaml:"status"`
	ETA           time.Time          `json:"eta" yaml:"eta"`
	DurationHours float64            `json:"duration_hours" yaml:"duration_hours"`
	TransferLines []TransferLine     `json:"transfer_lines" yaml:"transfer_lines"`
	SharedLedger  *ledger.Ledger     `json:"shared_ledger,omitempty" yaml:"shared_ledger,omitempty"`
}

// TransferLine is one physical connection point (bay, wharf, siding) and the
// commodity transfers it serves.
type TransferLine struct {
	InfrastructureID string     `json:"infrastructure_id" yaml:"infrastructure_id"`
	Transfers        []Transfer `json:"transfers" yaml:"transfers"`
}

// Transfer is one commodity movement between a tank and the conveyance.
type Transfer struct {
	ID                     string         `json:"id" yaml:"id"`
	Product                string         `json:"product" yaml:"product"`
	Customer               string         `json:"customer" yaml:"customer"`
	Direction              Direction      `json:"direction" yaml:"direction"`
	From                   string         `json:"from" yaml:"from"`
	To                     string         `json:"to" yaml:"to"`
	PlannedTonnes          float64        `json:"planned_tonnes" yaml:"planned_tonnes"`
	TransferredTonnesSoFar float64        `json:"transferred_tonnes" yaml:"transferred_tonnes"`
	Ledger                 *ledger.Ledger `json:"ledger,omitempty" yaml:"ledger,omitempty"`
}

// Window returns the half-open interval [ETA, ETA+duration) the operation
// occupies its infrastructure.
func (o *Operation) Window() (time.Time, time.Time) {
	end := o.ETA.Add(time.Duration(o.DurationHours * float64(time.Hour)))
	return o.ETA, end
}

// Transfer returns a pointer to the transfer with the given ID.
func (o *Operation) Transfer(id string) (*Transfer, bool) {
	for i := range o.TransferLines {
		for j := range o.TransferLines[i].Transfers {
			if o.TransferLines[i].Transfers[j].ID == id {
				return &o.TransferLines[i].Transfers[j], true
			}
		}
	}
	return nil, false
}

// Ledger returns the ledger a step reference points at: the shared ledger
// when transferID is empty, otherwise the transfer's ledger.
func (o *Operation) Ledger(transferID string) (*ledger.Ledger, error) {
	if transferID == "" {
		if o.SharedLedger == nil {
			return nil, fmt.Errorf("operation %s has no shared ledger", o.ID)
		}
		return o.SharedLedger, nil
	}
	t, ok := o.Transfer(transferID)
	if !ok {
		return nil, fmt.Errorf("operation %s has no transfer %s", o.ID, transferID)
	}
	if t.Ledger == nil {
		return nil, fmt.Errorf("transfer %s has no ledger", transferID)
	}
	return t.Ledger, nil
}

// EnsureLedgers seeds every missing ledger with loop 1 from the catalog.
// Existing ledgers are left untouched. Returns the number of ledgers created.
func (o *Operation) EnsureLedgers(cat *checklist.Catalog) (int, error) {
	created := 0
	if shared, ok := cat.Shared(o.Modality); ok && o.SharedLedger == nil {
		o.SharedLedger = ledger.New(shared)
		created++
	}

	cl, ok := cat.Transfer(o.Modality)
	if !ok {
		return created, fmt.Errorf("no checklist for modality %q", o.Modality)
	}
	for i := range o.TransferLines {
		for j := range o.TransferLines[i].Transfers {
			t := &o.TransferLines[i].Transfers[j]
			if t.Ledger == nil {
				t.Ledger = ledger.New(cl)
				created++
			}
		}
	}
	return created, nil
}

// CheckLedgers verifies that every ledger follows the catalog checklist for
// the operation's modality and satisfies the ordering invariant.
func (o *Operation) CheckLedgers(cat *checklist.Catalog) error {
	if o.SharedLedger != nil {
		shared, ok := cat.Shared(o.Modality)
		if !ok {
			return fmt.Errorf("modality %q has no shared ledger", o.Modality)
		}
		if err := checkLedger(o.SharedLedger, shared); err != nil {
			return fmt.Errorf("shared ledger: %w", err)
		}
	}

	cl, ok := cat.Transfer(o.Modality)
	if !ok {
		return fmt.Errorf("no checklist for modality %q", o.Modality)
	}
	for _, line := range o.TransferLines {
		for _, t := range line.Transfers {
			if t.Ledger == nil {
				continue
			}
			if err := checkLedger(t.Ledger, cl); err != nil {
				return fmt.Errorf("transfer %s: %w", t.ID, err)
			}
		}
	}
	return nil
}

func checkLedger(l *ledger.Ledger, want checklist.Checklist) error {
	if !l.Checklist.Equal(want) {
		return fmt.Errorf("checklist does not match the %d-step catalog checklist", want.Len())
	}
	return l.CheckInvariant()
}

// Clone returns a deep copy of the operation.
func (o *Operation) Clone() *Operation {
	out := *o
	out.SharedLedger = o.SharedLedger.Clone()
	out.TransferLines = make([]TransferLine, len(o.TransferLines))
	for i, line := range o.TransferLines {
		line.Transfers = append([]Transfer(nil), line.Transfers...)
		for j := range line.Transfers {
			line.Transfers[j].Ledger = line.Transfers[j].Ledger.Clone()
		}
		out.TransferLines[i] = line
	}
	return &out
}

// Direction is the free-text transfer direction, e.g. "Vessel to Tank" or
// "Tank to Truck". Only its relation to "Tank" matters to the engine.
type Direction string

const tankWord = "Tank"

// IntoTank reports whether product is received into a tank ("<X> to Tank").
func (d Direction) IntoTank() bool {
	return strings.HasSuffix(string(d), " to "+tankWord)
}

// OutOfTank reports whether product is drawn from a tank ("Tank to <X>").
func (d Direction) OutOfTank() bool {
	return strings.HasPrefix(string(d), tankWord+" to ")
}

// TouchesTank reports whether the direction references a tank at all.
func (d Direction) TouchesTank() bool {
	return strings.Contains(string(d), tankWord)
}

// InboundTank returns the receiving tank of an inbound transfer.
func (t *Transfer) InboundTank() string {
	if t.Direction.IntoTank() {
		return t.To
	}
	return ""
}

// OutboundTank returns the source tank of an outbound transfer.
func (t *Transfer) OutboundTank() string {
	if t.Direction.OutOfTank() {
		return t.From
	}
	return ""
}

// Tanks returns the tank IDs the transfer references.
func (t *Transfer) Tanks() []string {
	var tanks []string
	if in := t.InboundTank(); in != "" {
		tanks = append(tanks, in)
	}
	if out := t.OutboundTank(); out != "" && out != t.InboundTank() {
		tanks = append(tanks, out)
	}
	return tanks
}

// Tanks returns every tank referenced by the line's transfers, in order,
// without duplicates.
func (l *TransferLine) Tanks() []string {
	seen := make(map[string]bool)
	var tanks []string
	for i := range l.Transfers {
		for _, tank := range l.Transfers[i].Tanks() {
			if !seen[tank] {
				seen[tank] = true
				tanks = append(tanks, tank)
			}
		}
	}
	return tanks
}
