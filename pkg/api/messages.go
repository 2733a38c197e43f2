package api

import "time"

type (
	// PromptRequest contains parameters for a synchronous or streaming
	// invoke
	PromptRequest struct {
		Prompt      string     `json:"prompt"`
		OrderID     string     `json:"order_id,omitempty"`
		CustomerID  string     `json:"customer_id,omitempty"`
		Origin      string     `json:"origin,omitempty"`
		Destination string     `json:"destination,omitempty"`
		Shipments   []Shipment `json:"shipments,omitempty"`
	}

	// PromptResponse is returned by the synchronous invoke endpoint
	PromptResponse struct {
		Response    string `json:"response"`
		OrderID     string `json:"order_id,omitempty"`
		RunID       RunID  `json:"run_id"`
		Status      string `json:"status"`
		InterruptID string `json:"interrupt_id,omitempty"`
	}

	// StreamEvent is one line of the NDJSON streaming response. The final
	// event carries the terminal result
	StreamEvent struct {
		Step        StepID `json:"step,omitempty"`
		Content     string `json:"content,omitempty"`
		Error       string `json:"error,omitempty"`
		InterruptID string `json:"interrupt_id,omitempty"`
		Final       bool   `json:"final,omitempty"`
		Status      string `json:"status,omitempty"`
	}

	// ApproveRequest approves a pending interrupt
	ApproveRequest struct {
		InterruptID string `json:"interrupt_id"`
		ApproverID  string `json:"approver_id"`
	}

	// RejectRequest rejects a pending interrupt
	RejectRequest struct {
		InterruptID string `json:"interrupt_id"`
		ApproverID  string `json:"approver_id"`
		Reason      string `json:"reason,omitempty"`
	}

	// DecisionResponse reports the outcome of an approve or reject call
	DecisionResponse struct {
		Status      ApprovalStatus `json:"status"`
		InterruptID string         `json:"interrupt_id"`
		ResourceID  string         `json:"resource_id"`
		DecidedBy   string         `json:"decided_by"`
		Reason      string         `json:"reason,omitempty"`
		DecidedAt   time.Time      `json:"decided_at"`
		RunStatus   string         `json:"run_status,omitempty"`
		Response    string         `json:"response,omitempty"`
	}

	// PendingApprovalsResponse lists interrupts awaiting a decision
	PendingApprovalsResponse struct {
		Pending []*Interrupt `json:"pending_approvals"`
		Count   int          `json:"count"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Agent   string `json:"agent"`
	}

	// ProvidersResponse lists the currently registered provider ids
	ProvidersResponse struct {
		Providers []ProviderID `json:"providers"`
		Count     int          `json:"count"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
