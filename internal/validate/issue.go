package validate

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// IssueCode identifies the kind of validation issue.
type IssueCode string

const (
	IssueMissingInfrastructure IssueCode = "MISSING_INFRASTRUCTURE"
	IssueNoTransfers           IssueCode = "NO_TRANSFERS"
	IssueNoTanksConfigured     IssueCode = "NO_TANKS_CONFIGURED"
	IssueNoReachableTank       IssueCode = "NO_REACHABLE_TANK"
	IssueMissingToTank         IssueCode = "MISSING_TO_TANK"
	IssueMissingFromTank       IssueCode = "MISSING_FROM_TANK"
	IssueTankNotFound          IssueCode = "TANK_NOT_FOUND"
	IssueSafeFillExceeded      IssueCode = "SAFE_FILL_EXCEEDED"
	IssueInsufficientStock     IssueCode = "INSUFFICIENT_STOCK"
	IssueIncompatibleProduct   IssueCode = "INCOMPATIBLE_PRODUCT"
	IssueHoldConflict          IssueCode = "HOLD_CONFLICT"
)

// Issue is one problem found in a plan. The fields relevant to Code are set;
// the rest are zero.
type Issue struct {
	Code           IssueCode `json:"code"`
	Line           int       `json:"line"`
	Infrastructure string    `json:"infrastructure,omitempty"`
	TransferID     string    `json:"transfer_id,omitempty"`
	Customer       string    `json:"customer,omitempty"`
	Product        string    `json:"product,omitempty"`
	ProductGroup   string    `json:"product_group,omitempty"`
	LastProduct    string    `json:"last_product,omitempty"`
	LastGroup      string    `json:"last_group,omitempty"`
	Tank           string    `json:"tank,omitempty"`
	HoldID         string    `json:"hold_id,omitempty"`
	HoldReason     string    `json:"hold_reason,omitempty"`

	// Amount is the overage (safe fill) or shortfall (stock) in tonnes.
	Amount float64 `json:"amount,omitempty"`
}

// Message renders the issue in English.
func (i Issue) Message() string {
	return i.Render(message.NewPrinter(language.English))
}

// Render formats the issue with p, which localizes number formatting.
// Printers are not safe for concurrent use; give each goroutine its own.
func (i Issue) Render(p *message.Printer) string {
	switch i.Code {
	case IssueMissingInfrastructure:
		return p.Sprintf("Transfer line %d has no infrastructure assigned", i.Line+1)
	case IssueNoTransfers:
		return p.Sprintf("%s has no commodity transfers", i.Infrastructure)
	case IssueNoTanksConfigured:
		return p.Sprintf("No tanks configured for %s / %s", i.Customer, i.Product)
	case IssueNoReachableTank:
		return p.Sprintf("No authorized tank for %s / %s is reachable from %s", i.Customer, i.Product, i.Infrastructure)
	case IssueMissingToTank:
		return p.Sprintf("Transfer %s has no destination tank", i.TransferID)
	case IssueMissingFromTank:
		return p.Sprintf("Transfer %s has no source tank", i.TransferID)
	case IssueTankNotFound:
		return p.Sprintf("Tank %s not found", i.Tank)
	case IssueSafeFillExceeded:
		return p.Sprintf("Tank %s would exceed safe fill by %.2f t", i.Tank, i.Amount)
	case IssueInsufficientStock:
		return p.Sprintf("Tank %s would go %.2f t below empty", i.Tank, i.Amount)
	case IssueIncompatibleProduct:
		return p.Sprintf("%s (%s) cannot follow %s (%s) on %s",
			i.Product, i.ProductGroup, i.LastProduct, i.LastGroup, i.Infrastructure)
	case IssueHoldConflict:
		reason := i.HoldReason
		if reason == "" {
			reason = i.HoldID
		}
		return p.Sprintf("%s is on hold: %s", i.Infrastructure, reason)
	}
	return string(i.Code)
}

// Result is the outcome of validating one operation.
type Result struct {
	IsValid bool    `json:"is_valid"`
	Issues  []Issue `json:"issues"`
}

// Messages returns the English message of every issue, in order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.Message()
	}
	return out
}

// Codes returns the code of every issue, in order.
func (r Result) Codes() []IssueCode {
	out := make([]IssueCode, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.Code
	}
	return out
}

// Count returns the number of issues with the given code.
func (r Result) Count(code IssueCode) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Code == code {
			n++
		}
	}
	return n
}
