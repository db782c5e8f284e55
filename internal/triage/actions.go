package triage

import (
	"strings"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

// terminal invoice statuses that triage never touches
var terminalStatuses = map[string]bool{
	entity.InvoiceStatusPaid:      true,
	entity.InvoiceStatusDisputed:  true,
	entity.InvoiceStatusScheduled: true,
}

// statuses triage is allowed to move an invoice out of
var managedStatuses = map[string]bool{
	entity.InvoiceStatusUnpaid:      true,
	entity.InvoiceStatusPending:     true,
	entity.InvoiceStatusOnHold:      true,
	entity.InvoiceStatusUnderReview: true,
	entity.InvoiceStatusApproved:    true,
}

// IsTerminalStatus reports whether an invoice status is final
func IsTerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// CanApply reports whether triage may change an invoice in this status
func CanApply(status string) bool {
	return managedStatuses[status]
}

// StatusForLane maps a triage lane to the invoice status it drives
func StatusForLane(lane string) string {
	switch lane {
	case entity.LaneAutoApprove:
		return entity.InvoiceStatusApproved
	case entity.LaneBlock:
		return entity.InvoiceStatusOnHold
	default:
		return entity.InvoiceStatusUnderReview
	}
}

// ActivityAction names the audit trail entry for a lane assignment
func ActivityAction(lane string) string {
	return "triage_" + strings.ToLower(lane)
}
