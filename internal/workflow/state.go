// Package workflow implements the finite-state workflow engine: a closed
// set of named steps with conditional transitions, a bounded execution
// loop, and suspend/resume semantics for out-of-band approval.
package workflow

import (
	"context"

	"github.com/courierhq/dispatch/pkg/api"
)

type (
	// Handler executes one step against the current run state and returns a
	// partial update. A handler signals suspension through Update.Suspend
	// instead of producing a terminal result
	Handler func(ctx context.Context, st *api.RunState) (*Update, error)

	// Update is a partial state change produced by a step. Zero-valued
	// scalar fields leave the state untouched; Messages and Errors are
	// always appended, never replaced
	Update struct {
		Origin      string
		Destination string
		Shipments   []api.Shipment
		Serviceable *bool
		Quotes      []api.RateQuote
		Selected    *api.RateQuote
		Approval    api.ApprovalStatus
		InterruptID string
		Booking     *api.LabelResponse
		Response    string
		Messages    []api.Message
		Errors      []string
		Next        api.StepID
		Suspend     bool
	}
)

// apply merges the update into the run state: scalars overwrite, logs
// append
func (u *Update) apply(st *api.RunState) {
	if u == nil {
		return
	}
	if u.Origin != "" {
		st.Origin = u.Origin
	}
	if u.Destination != "" {
		st.Destination = u.Destination
	}
	if u.Shipments != nil {
		st.Shipments = u.Shipments
	}
	if u.Serviceable != nil {
		st.Serviceable = u.Serviceable
	}
	if u.Quotes != nil {
		st.Quotes = u.Quotes
	}
	if u.Selected != nil {
		st.Selected = u.Selected
	}
	if u.Approval != "" {
		st.Approval = u.Approval
	}
	if u.InterruptID != "" {
		st.InterruptID = u.InterruptID
	}
	if u.Booking != nil {
		st.Booking = u.Booking
	}
	if u.Response != "" {
		st.Response = u.Response
	}
	if u.Next != "" {
		st.Next = u.Next
	}
	st.Messages = append(st.Messages, u.Messages...)
	st.Errors = append(st.Errors, u.Errors...)
}

// assistant builds an assistant entry for the interaction log
func assistant(content string) api.Message {
	return api.Message{Role: "assistant", Content: content}
}
