package api

type (
	// RunID is the correlation id that owns a workflow run for its lifetime
	RunID string

	// StepID names a workflow step. The step set is closed; routing
	// functions are total over it
	StepID string

	// ApprovalStatus tracks the approval outcome carried in run state
	ApprovalStatus string

	// Message is one entry in a run's append-only interaction log
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// LineItem is a single order line inside a shipment
	LineItem struct {
		Description string  `json:"description,omitempty"`
		WeightKg    float64 `json:"weight_kg"`
		Value       float64 `json:"value"`
		Quantity    int     `json:"quantity"`
	}

	// Shipment groups the line items travelling together
	Shipment struct {
		Items []LineItem `json:"items"`
	}

	// RunState is the mutable record owned by exactly one in-flight run.
	// Messages and Errors grow monotonically; scalar fields are overwritten
	// by step updates
	RunState struct {
		RunID       RunID          `json:"run_id"`
		OrderID     string         `json:"order_id"`
		CustomerID  string         `json:"customer_id"`
		Origin      string         `json:"origin"`
		Destination string         `json:"destination"`
		Prompt      string         `json:"prompt"`
		Shipments   []Shipment     `json:"shipments,omitempty"`
		Messages    []Message      `json:"messages"`
		Serviceable *bool          `json:"serviceable,omitempty"`
		Quotes      []RateQuote    `json:"quotes,omitempty"`
		Selected    *RateQuote     `json:"selected_quote,omitempty"`
		Approval    ApprovalStatus `json:"approval_status,omitempty"`
		InterruptID string         `json:"interrupt_id,omitempty"`
		Booking     *LabelResponse `json:"booking_confirmation,omitempty"`
		Errors      []string       `json:"errors,omitempty"`
		Next        StepID         `json:"next_step"`
		Response    string         `json:"response,omitempty"`
	}
)

// The closed step set. StepEnd is the terminal sentinel
const (
	StepSupervisor       StepID = "supervisor"
	StepServiceability   StepID = "serviceability"
	StepRateNegotiation  StepID = "rate_negotiation"
	StepApprovalGate     StepID = "approval_gate"
	StepCarrierExecution StepID = "carrier_execution"
	StepReflection       StepID = "reflection"
	StepGeneralResponse  StepID = "general_response"
	StepEnd              StepID = "end"
)

const (
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
)

const defaultOrderValue = 1000.0

// OrderValue sums item value*quantity across all shipments. Orders without
// declared values fall back to a nominal default so the approval policy
// still has something to evaluate
func (s *RunState) OrderValue() float64 {
	total := 0.0
	for _, shp := range s.Shipments {
		for _, item := range shp.Items {
			qty := item.Quantity
			if qty == 0 {
				qty = 1
			}
			total += item.Value * float64(qty)
		}
	}
	if total == 0 {
		return defaultOrderValue
	}
	return total
}

// TotalWeight sums item weight*quantity across all shipments
func (s *RunState) TotalWeight() float64 {
	total := 0.0
	for _, shp := range s.Shipments {
		for _, item := range shp.Items {
			qty := item.Quantity
			if qty == 0 {
				qty = 1
			}
			total += item.WeightKg * float64(qty)
		}
	}
	return total
}

// LastAssistantMessage returns the most recent assistant entry in the
// interaction log, or empty if none was recorded
func (s *RunState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "assistant" {
			return s.Messages[i].Content
		}
	}
	return ""
}
