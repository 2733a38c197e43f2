package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/courierhq/dispatch/internal/aggregator"
	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/internal/intent"
	"github.com/courierhq/dispatch/internal/labels"
	"github.com/courierhq/dispatch/internal/rates"
	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

type (
	// Transition picks the next step after the current one has applied its
	// update. Transitions are total: every reachable state maps to a step
	// in the closed set
	Transition func(st *api.RunState) api.StepID

	// Graph is the static step topology an Engine executes. Handlers and
	// Transitions are keyed by the closed step set; StepEnd has neither
	Graph struct {
		Entry       api.StepID
		Handlers    map[api.StepID]Handler
		Transitions map[api.StepID]Transition
	}

	// Deps are the collaborators the logistics graph's steps call into.
	// Archive may be nil; label archival is then skipped
	Deps struct {
		Aggregator *aggregator.Aggregator
		Gate       *approval.Gate
		Classifier intent.Classifier
		Archive    *labels.Archive
		Strategy   api.Strategy
	}
)

const actionBookShipment = "book_shipment"

// fallback weight when the order declares none
const defaultWeightKg = 10.0

// NewLogisticsGraph builds the shipping workflow: supervisor routes on the
// classified intent, booking passes through the approval gate, and
// reflection decides whether the run is complete
func NewLogisticsGraph(deps Deps) *Graph {
	return &Graph{
		Entry: api.StepSupervisor,
		Handlers: map[api.StepID]Handler{
			api.StepSupervisor:       deps.supervise,
			api.StepServiceability:   deps.checkServiceability,
			api.StepRateNegotiation:  deps.negotiateRates,
			api.StepApprovalGate:     deps.gateApproval,
			api.StepCarrierExecution: deps.executeBooking,
			api.StepReflection:       deps.reflect,
			api.StepGeneralResponse:  deps.respondGeneral,
		},
		Transitions: map[api.StepID]Transition{
			api.StepSupervisor:       routeOnNext,
			api.StepServiceability:   fixed(api.StepReflection),
			api.StepRateNegotiation:  fixed(api.StepReflection),
			api.StepApprovalGate:     routeOnApproval,
			api.StepCarrierExecution: fixed(api.StepReflection),
			api.StepReflection:       routeOnNext,
			api.StepGeneralResponse:  fixed(api.StepEnd),
		},
	}
}

// fixed returns a transition that always picks the same step
func fixed(next api.StepID) Transition {
	return func(*api.RunState) api.StepID {
		return next
	}
}

// routeOnNext follows the step the handler recorded in state
func routeOnNext(st *api.RunState) api.StepID {
	if st.Next == "" {
		return api.StepEnd
	}
	return st.Next
}

// routeOnApproval sends approved bookings to execution and everything else
// back through reflection
func routeOnApproval(st *api.RunState) api.StepID {
	switch st.Approval {
	case api.ApprovalApproved, api.ApprovalAutoApproved:
		return api.StepCarrierExecution
	}
	return api.StepReflection
}

// supervise classifies the prompt and routes on the resulting intent. A
// classifier failure degrades to the general intent rather than failing
// the run
func (d Deps) supervise(
	ctx context.Context, st *api.RunState,
) (*Update, error) {
	cls, err := d.Classifier.Classify(ctx, st.Prompt)
	if err != nil {
		slog.Warn("Intent classification failed; treating as general",
			log.RunID(st.RunID), log.Error(err))
		cls = &api.Classification{Intent: api.IntentGeneral}
	}

	upd := &Update{
		Origin:      cls.Params.Origin,
		Destination: cls.Params.Destination,
	}
	if cls.Params.WeightKg > 0 && len(st.Shipments) == 0 {
		upd.Shipments = []api.Shipment{{
			Items: []api.LineItem{{
				WeightKg: cls.Params.WeightKg,
				Quantity: 1,
			}},
		}}
	}

	switch cls.Intent.Normalize() {
	case api.IntentServiceability:
		upd.Next = api.StepServiceability
	case api.IntentRateRequest:
		upd.Next = api.StepRateNegotiation
	case api.IntentBookShipment:
		upd.Next = api.StepApprovalGate
	default:
		upd.Next = api.StepGeneralResponse
	}

	slog.Debug("Prompt classified",
		log.RunID(st.RunID),
		slog.String("intent", string(cls.Intent)),
		log.StepID(upd.Next))
	return upd, nil
}

// checkServiceability fans out to every registered provider and summarizes
// which of them can complete the route
func (d Deps) checkServiceability(
	ctx context.Context, st *api.RunState,
) (*Update, error) {
	if st.Origin == "" || st.Destination == "" {
		return nil, fmt.Errorf(
			"%w: origin and destination are required for a "+
				"serviceability check", api.ErrValidation,
		)
	}

	results := d.Aggregator.CheckServiceabilityAll(
		ctx, st.Origin, st.Destination,
	)

	var available []string
	var reasons []string
	for _, r := range results {
		if r.Serviceable {
			available = append(available, string(r.Provider))
		} else if r.Message != "" {
			reasons = append(reasons, r.Message)
		}
	}

	serviceable := len(available) > 0
	var content string
	switch {
	case serviceable:
		content = fmt.Sprintf(
			"Route %s to %s is serviceable. Available providers: %s.",
			st.Origin, st.Destination, strings.Join(available, ", "),
		)
	case len(reasons) > 0:
		content = fmt.Sprintf(
			"Route %s to %s is not serviceable: %s",
			st.Origin, st.Destination, strings.Join(reasons, "; "),
		)
	default:
		content = fmt.Sprintf(
			"Route %s to %s is not serviceable: no provider responded.",
			st.Origin, st.Destination,
		)
	}

	return &Update{
		Serviceable: &serviceable,
		Messages:    []api.Message{assistant(content)},
	}, nil
}

// negotiateRates collects quotes from every provider and records them
// ranked by the configured strategy. Zero quotes is reported to the
// caller, not treated as a run failure
func (d Deps) negotiateRates(
	ctx context.Context, st *api.RunState,
) (*Update, error) {
	quotes, err := d.Aggregator.GetBestRates(
		ctx, shipmentRequest(st), d.Strategy,
	)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return &Update{
			Errors: []string{"no provider available for route"},
			Messages: []api.Message{assistant(fmt.Sprintf(
				"No shipping options found for %s to %s.",
				st.Origin, st.Destination,
			))},
		}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d shipping option(s) for %s to %s:\n",
		len(quotes), st.Origin, st.Destination)
	for _, q := range quotes {
		fmt.Fprintf(&b, "- %s %s: %.2f %s, %d day(s)\n",
			q.Provider, q.ServiceName, q.Price, q.Currency,
			q.DeliveryDays)
	}
	if best, ok := rates.SelectBest(quotes, d.Strategy); ok {
		fmt.Fprintf(&b, "Recommended (%s): %s %s at %.2f %s.",
			d.Strategy, best.Provider, best.ServiceName, best.Price,
			best.Currency)
	}

	return &Update{
		Quotes:   quotes,
		Messages: []api.Message{assistant(b.String())},
	}, nil
}

// gateApproval evaluates the approval policy against the order value. Runs
// above the limit suspend behind a pending interrupt; a decided run passes
// straight through so resumption re-enters here without looping
func (d Deps) gateApproval(
	ctx context.Context, st *api.RunState,
) (*Update, error) {
	switch st.Approval {
	case api.ApprovalApproved, api.ApprovalAutoApproved:
		return &Update{}, nil
	case api.ApprovalRejected:
		return &Update{
			Messages: []api.Message{assistant(
				"The booking was not approved and has been cancelled.",
			)},
		}, nil
	}

	value := st.OrderValue()
	needed, err := d.Gate.Policy().RequiresApproval(
		value, actionBookShipment,
	)
	if err != nil {
		return nil, err
	}
	if !needed {
		return &Update{Approval: api.ApprovalAutoApproved}, nil
	}

	interrupt, err := d.Gate.Create(ctx, st.OrderID,
		fmt.Sprintf("order value %.2f exceeds auto-approval limit %.2f",
			value, d.Gate.Policy().Limit()),
		actionBookShipment,
		map[string]any{
			"run_id":      string(st.RunID),
			"order_value": value,
			"origin":      st.Origin,
			"destination": st.Destination,
		})
	if err != nil {
		return nil, err
	}

	return &Update{
		Approval:    api.ApprovalPending,
		InterruptID: interrupt.ID,
		Suspend:     true,
		Messages: []api.Message{assistant(fmt.Sprintf(
			"This order requires manager approval before booking. "+
				"Approval request id: %s.", interrupt.ID,
		))},
	}, nil
}

// executeBooking books the shipment with the selected provider, or picks
// one by strategy when nothing was selected. Booking failures are recorded
// in state; the run then completes through reflection
func (d Deps) executeBooking(
	ctx context.Context, st *api.RunState,
) (*Update, error) {
	req := shipmentRequest(st)

	var (
		label    *api.LabelResponse
		selected *api.RateQuote
		err      error
	)
	if st.Selected != nil {
		label, err = d.Aggregator.CreateShipment(
			ctx, st.Selected.Provider, req, st.Selected.ServiceCode,
		)
	} else {
		label, selected, err = d.Aggregator.CreateShipmentAuto(
			ctx, req, d.Strategy,
		)
	}
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			return nil, err
		}
		content := "Booking failed: " + err.Error()
		if errors.Is(err, api.ErrNoProviderAvailable) {
			content = fmt.Sprintf(
				"No shipping options found for %s to %s; "+
					"nothing was booked.", st.Origin, st.Destination,
			)
		}
		return &Update{
			Errors:   []string{err.Error()},
			Messages: []api.Message{assistant(content)},
		}, nil
	}

	if d.Archive != nil {
		if err := d.Archive.Save(ctx, label, req); err != nil {
			slog.Warn("Label archival failed",
				log.RunID(st.RunID),
				slog.String("tracking_number", label.TrackingNumber),
				log.Error(err))
		}
	}

	slog.Info("Shipment booked",
		log.RunID(st.RunID),
		log.Provider(label.Provider),
		slog.String("tracking_number", label.TrackingNumber))

	return &Update{
		Booking:  label,
		Selected: selected,
		Messages: []api.Message{assistant(fmt.Sprintf(
			"Shipment booked with %s. Tracking number: %s. Label: %s",
			label.Provider, label.TrackingNumber, label.LabelURL,
		))},
	}, nil
}

// reflect decides whether the run has produced a terminal outcome. Any
// recorded result, decision, or error completes the run; otherwise control
// returns to the supervisor
func (d Deps) reflect(
	_ context.Context, st *api.RunState,
) (*Update, error) {
	complete := st.Booking != nil ||
		st.Serviceable != nil ||
		len(st.Quotes) > 0 ||
		st.Approval == api.ApprovalRejected ||
		len(st.Errors) > 0

	next := api.StepSupervisor
	if complete {
		next = api.StepEnd
	}
	return &Update{Next: next}, nil
}

// respondGeneral answers prompts that need no shipping action
func (d Deps) respondGeneral(
	_ context.Context, st *api.RunState,
) (*Update, error) {
	content := "I can check route serviceability, compare carrier " +
		"rates, and book shipments. Tell me the origin, destination, " +
		"and weight to get started."
	return &Update{
		Response: content,
		Messages: []api.Message{assistant(content)},
	}, nil
}

// shipmentRequest builds the provider request from run state, falling back
// to a nominal weight when the order declares none
func shipmentRequest(st *api.RunState) *api.ShipmentRequest {
	weight := st.TotalWeight()
	if weight == 0 {
		weight = defaultWeightKg
	}
	return &api.ShipmentRequest{
		Origin:      st.Origin,
		Destination: st.Destination,
		WeightKg:    weight,
	}
}
