package model

import (
	"slices"
	"time"
)

// SafeFillRatio is the fraction of nameplate capacity a tank may be filled to.
const SafeFillRatio = 0.98

// TankState is the inventory snapshot of one tank.
type TankState struct {
	Capacity      float64 `json:"capacity" yaml:"capacity"`
	CurrentVolume float64 `json:"current" yaml:"current"`
}

// Compatibility is the verdict of the product compatibility matrix.
type Compatibility string

const (
	Compatible   Compatibility = "compatible"
	Incompatible Compatibility = "incompatible"
)

// AuthorizationKey identifies one (customer, product) contract.
type AuthorizationKey struct {
	Customer string
	Product  string
}

// TerminalConfig is the master data snapshot the validator reads.
type TerminalConfig struct {
	// Tanks maps tank ID to inventory.
	Tanks map[string]TankState

	// Authorizations maps (customer, product) to the tanks the customer may use.
	Authorizations map[AuthorizationKey][]string

	// Infrastructure maps a connection point to the tanks reachable from it.
	Infrastructure map[string][]string

	// ProductGroups maps a product to its compatibility group.
	ProductGroups map[string]string

	// Compatibility is keyed [lastGroup][nextGroup].
	Compatibility map[string]map[string]Compatibility

	// Docklines maps a vessel connection point to the last product pumped.
	Docklines map[string]string
}

// NewTerminalConfig returns a config with every map allocated.
func NewTerminalConfig() *TerminalConfig {
	return &TerminalConfig{
		Tanks:          make(map[string]TankState),
		Authorizations: make(map[AuthorizationKey][]string),
		Infrastructure: make(map[string][]string),
		ProductGroups:  make(map[string]string),
		Compatibility:  make(map[string]map[string]Compatibility),
		Docklines:      make(map[string]string),
	}
}

// AuthorizedTanks returns the tanks customer may use for product.
func (c *TerminalConfig) AuthorizedTanks(customer, product string) []string {
	return c.Authorizations[AuthorizationKey{Customer: customer, Product: product}]
}

// Authorize grants customer the use of tanks for product.
func (c *TerminalConfig) Authorize(customer, product string, tanks ...string) {
	key := AuthorizationKey{Customer: customer, Product: product}
	for _, tank := range tanks {
		if !slices.Contains(c.Authorizations[key], tank) {
			c.Authorizations[key] = append(c.Authorizations[key], tank)
		}
	}
}

// CompatibilityOf returns the verdict for pumping a product of group next
// after one of group last. Unknown pairs are compatible.
func (c *TerminalConfig) CompatibilityOf(last, next string) Compatibility {
	if row, ok := c.Compatibility[last]; ok {
		if v, ok := row[next]; ok {
			return v
		}
	}
	return Compatible
}

// SetCompatibility records a verdict for the ordered pair (last, next).
func (c *TerminalConfig) SetCompatibility(last, next string, v Compatibility) {
	row, ok := c.Compatibility[last]
	if !ok {
		row = make(map[string]Compatibility)
		c.Compatibility[last] = row
	}
	row[next] = v
}

// HoldStatus is the approval status of a hold request.
type HoldStatus string

const (
	HoldPending   HoldStatus = "Pending"
	HoldApproved  HoldStatus = "Approved"
	HoldRejected  HoldStatus = "Rejected"
	HoldCancelled HoldStatus = "Cancelled"
)

// WorkOrderClosed is the work order status that releases a hold.
const WorkOrderClosed = "Closed"

// Hold is a maintenance or outage window on a resource, optionally scoped to
// one tank.
type Hold struct {
	ID              string     `json:"id" yaml:"id"`
	Resource        string     `json:"resource" yaml:"resource"`
	Tank            string     `json:"tank,omitempty" yaml:"tank,omitempty"`
	Start           time.Time  `json:"start" yaml:"start"`
	End             time.Time  `json:"end" yaml:"end"`
	Status          HoldStatus `json:"status" yaml:"status"`
	WorkOrderStatus string     `json:"work_order_status,omitempty" yaml:"work_order_status,omitempty"`
	Reason          string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Enforced reports whether the hold can block operations: approved and its
// work order not closed.
func (h *Hold) Enforced() bool {
	return h.Status == HoldApproved && h.WorkOrderStatus != WorkOrderClosed
}
