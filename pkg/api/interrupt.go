package api

import "time"

type (
	// Interrupt is an approval request created when a guarded action's
	// computed risk exceeds the configured threshold. It is an audit record:
	// decided interrupts leave the pending working set but are never deleted
	Interrupt struct {
		ID         string         `json:"interrupt_id"`
		ResourceID string         `json:"resource_id"`
		Reason     string         `json:"reason"`
		Action     string         `json:"action"`
		Context    map[string]any `json:"context,omitempty"`
		CreatedAt  time.Time      `json:"created_at"`
		Status     ApprovalStatus `json:"status"`
		DecidedBy  string         `json:"decided_by,omitempty"`
		DecidedAt  time.Time      `json:"decided_at,omitempty"`

		// DecisionReason is the approver's stated reason, recorded on
		// rejection for the audit trail
		DecisionReason string `json:"decision_reason,omitempty"`
	}

	// Decision is the resume payload produced when an interrupt is decided
	// and consumed by the workflow engine
	Decision struct {
		InterruptID string         `json:"interrupt_id"`
		Status      ApprovalStatus `json:"status"`
		DecidedBy   string         `json:"decided_by"`
		DecidedAt   time.Time      `json:"decided_at"`
	}
)

// Pending reports whether the interrupt still awaits a decision
func (i *Interrupt) Pending() bool {
	return i.Status == ApprovalPending
}
