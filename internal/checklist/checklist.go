// Package checklist holds the static, per-modality Statement of Facts step lists.
//
// A Checklist is an ordered list of step names plus three markers the rest of
// the engine needs to interpret it:
//
//   - PumpStart / PumpStop bracket the physical transfer. While PumpStart is
//     complete and PumpStop is not, progress credits PumpStart fractionally.
//   - ReworkGate is the terminal "stop"-class step. A rework loop may only be
//     appended once it is complete in the latest loop.
//
// Catalogs are pure lookup tables. They carry no state and never fail.
package checklist

import (
	"fmt"
	"slices"
	"strings"
)

// Modality is the kind of conveyance an operation serves.
type Modality string

const (
	ModalityVessel Modality = "Vessel"
	ModalityTruck  Modality = "Truck"
	ModalityRail   Modality = "Rail"
)

// Modalities lists every supported modality in display order.
var Modalities = []Modality{ModalityVessel, ModalityTruck, ModalityRail}

// Valid reports whether m is one of the supported modalities.
func (m Modality) Valid() bool {
	return slices.Contains(Modalities, m)
}

// ParseModality accepts the canonical spelling or its lower-case form.
func ParseModality(s string) (Modality, error) {
	for _, m := range Modalities {
		if string(m) == s || strings.ToLower(string(m)) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown modality %q", s)
}

// Checklist is one ordered list of named steps.
type Checklist struct {
	Steps      []string `json:"steps" yaml:"steps"`
	PumpStart  string   `json:"pump_start,omitempty" yaml:"pump_start,omitempty"`
	PumpStop   string   `json:"pump_stop,omitempty" yaml:"pump_stop,omitempty"`
	ReworkGate string   `json:"rework_gate,omitempty" yaml:"rework_gate,omitempty"`
}

// Len returns the number of steps.
func (c Checklist) Len() int {
	return len(c.Steps)
}

// Position returns the index of step within the checklist, or -1.
func (c Checklist) Position(step string) int {
	return slices.Index(c.Steps, step)
}

// Equal reports whether c and o name the same steps and markers.
func (c Checklist) Equal(o Checklist) bool {
	return slices.Equal(c.Steps, o.Steps) &&
		c.PumpStart == o.PumpStart &&
		c.PumpStop == o.PumpStop &&
		c.ReworkGate == o.ReworkGate
}

// Clone returns a copy that shares no memory with c.
func (c Checklist) Clone() Checklist {
	c.Steps = slices.Clone(c.Steps)
	return c
}

// Catalog maps each modality to its transfer-level checklist and, where the
// modality has one, its operation-level (shared) checklist.
type Catalog struct {
	transfer map[Modality]Checklist
	shared   map[Modality]Checklist
}

// NewCatalog builds an empty catalog. Use Set/SetShared to populate it.
func NewCatalog() *Catalog {
	return &Catalog{
		transfer: make(map[Modality]Checklist),
		shared:   make(map[Modality]Checklist),
	}
}

// Set registers the transfer-level checklist for m.
func (c *Catalog) Set(m Modality, cl Checklist) {
	c.transfer[m] = cl.Clone()
}

// SetShared registers the operation-level checklist for m.
func (c *Catalog) SetShared(m Modality, cl Checklist) {
	c.shared[m] = cl.Clone()
}

// Transfer returns the transfer-level checklist for m.
func (c *Catalog) Transfer(m Modality) (Checklist, bool) {
	cl, ok := c.transfer[m]
	if !ok {
		return Checklist{}, false
	}
	return cl.Clone(), true
}

// Shared returns the operation-level checklist for m, if the modality has one.
func (c *Catalog) Shared(m Modality) (Checklist, bool) {
	cl, ok := c.shared[m]
	if !ok || cl.Len() == 0 {
		return Checklist{}, false
	}
	return cl.Clone(), true
}

// StepsFor returns the ordered transfer-level step names for m.
// Unknown modalities yield nil.
func (c *Catalog) StepsFor(m Modality) []string {
	cl, ok := c.transfer[m]
	if !ok {
		return nil
	}
	return slices.Clone(cl.Steps)
}

// DefaultCatalog returns the stock checklists used when a terminal
// configuration does not define its own.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Set(ModalityTruck, Checklist{
		Steps:      []string{"Arrived", "On Bay", "Pumping Started", "Pumping Stopped", "Paperwork Done", "Departed"},
		PumpStart:  "Pumping Started",
		PumpStop:   "Pumping Stopped",
		ReworkGate: "Pumping Stopped",
	})
	c.Set(ModalityRail, Checklist{
		Steps:      []string{"Placed", "Hoses Connected", "Pumping Started", "Pumping Stopped", "Hoses Disconnected", "Released"},
		PumpStart:  "Pumping Started",
		PumpStop:   "Pumping Stopped",
		ReworkGate: "Hoses Disconnected",
	})
	c.Set(ModalityVessel, Checklist{
		Steps:      []string{"Hoses Connected", "Pumping Started", "Pumping Stopped", "Hoses Disconnected", "Documents Signed"},
		PumpStart:  "Pumping Started",
		PumpStop:   "Pumping Stopped",
		ReworkGate: "Hoses Disconnected",
	})
	c.SetShared(ModalityVessel, Checklist{
		Steps: []string{"NOR Tendered", "All Fast", "Gangway Down", "Cargo Documents", "Gangway Up", "All Clear"},
	})
	return c
}
