package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/dispatch/internal/aggregator"
	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/internal/carrier"
	"github.com/courierhq/dispatch/internal/intent"
	"github.com/courierhq/dispatch/internal/workflow"
	"github.com/courierhq/dispatch/pkg/api"
)

// scriptedAdapter serves one fixed quote and booking
type scriptedAdapter struct {
	id    api.ProviderID
	quote api.RateQuote
	label api.LabelResponse
}

func (s *scriptedAdapter) ID() api.ProviderID {
	return s.id
}

func (s *scriptedAdapter) Name() string {
	return string(s.id)
}

func (s *scriptedAdapter) CheckServiceability(
	_ context.Context, origin, destination string,
) (*api.ServiceabilityResult, error) {
	return &api.ServiceabilityResult{
		Origin:      origin,
		Destination: destination,
		Serviceable: true,
		Provider:    s.id,
	}, nil
}

func (s *scriptedAdapter) GetRates(
	context.Context, *api.ShipmentRequest,
) ([]api.RateQuote, error) {
	return []api.RateQuote{s.quote}, nil
}

func (s *scriptedAdapter) CreateShipment(
	context.Context, *api.ShipmentRequest, string,
) (*api.LabelResponse, error) {
	label := s.label
	return &label, nil
}

type fixture struct {
	engine *workflow.Engine
	gate   *approval.Gate
	runs   workflow.RunStore
}

// newFixture assembles an engine over two scripted carriers: carrier-a at
// 50.00/3 days and carrier-b at 40.00/5 days
func newFixture(t *testing.T, strategy api.Strategy) *fixture {
	t.Helper()

	registry := carrier.NewRegistry()
	registry.Register(&scriptedAdapter{
		id: "carrier-a",
		quote: api.RateQuote{
			Provider:     "carrier-a",
			ServiceName:  "Express",
			ServiceCode:  "A-EXP",
			Price:        50.0,
			Currency:     "USD",
			DeliveryDays: 3,
		},
		label: api.LabelResponse{
			TrackingNumber: "TRACK-A-001",
			LabelURL:       "https://labels.example.com/a-001.pdf",
			Provider:       "carrier-a",
		},
	})
	registry.Register(&scriptedAdapter{
		id: "carrier-b",
		quote: api.RateQuote{
			Provider:     "carrier-b",
			ServiceName:  "Ground",
			ServiceCode:  "B-GND",
			Price:        40.0,
			Currency:     "USD",
			DeliveryDays: 5,
		},
		label: api.LabelResponse{
			TrackingNumber: "TRACK-B-001",
			LabelURL:       "https://labels.example.com/b-001.pdf",
			Provider:       "carrier-b",
		},
	})

	policy, err := approval.NewPolicy("value > limit", 5000.0)
	require.NoError(t, err)
	gate := approval.NewGate(approval.NewMemoryStore(), policy)

	graph := workflow.NewLogisticsGraph(workflow.Deps{
		Aggregator: aggregator.New(registry, time.Second),
		Gate:       gate,
		Classifier: intent.KeywordClassifier{},
		Strategy:   strategy,
	})

	runs := workflow.NewMemoryRunStore()
	return &fixture{
		engine: workflow.NewEngine(graph, runs, nil, 25),
		gate:   gate,
		runs:   runs,
	}
}

func highValueRequest(prompt string) *api.PromptRequest {
	return &api.PromptRequest{
		Prompt:      prompt,
		OrderID:     "ORD-6000",
		Origin:      "10001",
		Destination: "94105",
		Shipments: []api.Shipment{{
			Items: []api.LineItem{{
				Description: "industrial pump",
				WeightKg:    5.0,
				Value:       6000.0,
				Quantity:    1,
			}},
		}},
	}
}

func TestServiceabilityRun(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)

	st := workflow.NewRunState(&api.PromptRequest{
		Prompt:      "can you ship from 10001 to 94105?",
		Origin:      "10001",
		Destination: "94105",
	})
	final, err := f.engine.Run(context.Background(), st)
	require.NoError(t, err)

	require.NotNil(t, final.Serviceable)
	assert.True(t, *final.Serviceable)
	assert.Contains(t, final.Response, "carrier-a")
	assert.Contains(t, final.Response, "carrier-b")
}

func TestRateRequestRun(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)

	st := workflow.NewRunState(&api.PromptRequest{
		Prompt:      "how much to send a 5kg parcel?",
		Origin:      "10001",
		Destination: "94105",
	})
	final, err := f.engine.Run(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, final.Quotes, 2)
	assert.Equal(t, api.ProviderID("carrier-b"), final.Quotes[0].Provider)
	assert.Contains(t, final.Response, "carrier-b")
}

func TestRateRequestFastestStrategy(t *testing.T) {
	f := newFixture(t, api.StrategyFastest)

	st := workflow.NewRunState(&api.PromptRequest{
		Prompt:      "what would it cost?",
		Origin:      "10001",
		Destination: "94105",
	})
	final, err := f.engine.Run(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, final.Quotes, 2)
	assert.Equal(t, api.ProviderID("carrier-a"), final.Quotes[0].Provider)
}

func TestGeneralPromptRun(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)

	st := workflow.NewRunState(&api.PromptRequest{
		Prompt: "hello there",
	})
	final, err := f.engine.Run(context.Background(), st)
	require.NoError(t, err)
	assert.NotEmpty(t, final.Response)
	assert.Nil(t, final.Serviceable)
	assert.Empty(t, final.Quotes)
}

func TestLowValueBookingAutoApproves(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)

	st := workflow.NewRunState(&api.PromptRequest{
		Prompt:      "book this shipment",
		OrderID:     "ORD-200",
		Origin:      "10001",
		Destination: "94105",
		Shipments: []api.Shipment{{
			Items: []api.LineItem{{
				WeightKg: 2.0, Value: 200.0, Quantity: 1,
			}},
		}},
	})
	final, err := f.engine.Run(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, api.ApprovalAutoApproved, final.Approval)
	require.NotNil(t, final.Booking)
	assert.Equal(t, "TRACK-B-001", final.Booking.TrackingNumber)
	assert.Empty(t, final.InterruptID)

	pending, err := f.gate.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHighValueBookingSuspendsAndResumes(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)
	ctx := context.Background()

	st := workflow.NewRunState(highValueRequest("book this shipment"))
	suspended, err := f.engine.Run(ctx, st)
	require.NoError(t, err)

	assert.Equal(t, api.ApprovalPending, suspended.Approval)
	require.NotEmpty(t, suspended.InterruptID)
	assert.Nil(t, suspended.Booking)

	// the (state, pending step) pair is persisted for resumption
	parked, err := f.runs.Get(ctx, suspended.RunID)
	require.NoError(t, err)
	assert.Equal(t, api.StepApprovalGate, parked.PendingStep)

	isSuspended, err := f.engine.Suspended(ctx, suspended.RunID)
	require.NoError(t, err)
	assert.True(t, isSuspended)

	interrupt, err := f.gate.Get(ctx, suspended.InterruptID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-6000", interrupt.ResourceID)
	assert.True(t, interrupt.Pending())

	decided, err := f.gate.Approve(ctx, interrupt.ID, "manager-7")
	require.NoError(t, err)

	final, err := f.engine.Resume(
		ctx, suspended.RunID, approval.ResumeDecision(decided),
	)
	require.NoError(t, err)

	assert.Equal(t, api.ApprovalApproved, final.Approval)
	require.NotNil(t, final.Booking)
	assert.Equal(t, api.ProviderID("carrier-b"), final.Booking.Provider)
	assert.Equal(t, "TRACK-B-001", final.Booking.TrackingNumber)
	assert.Contains(t, final.Response, "TRACK-B-001")

	// the suspended record is consumed by resumption
	_, err = f.runs.Get(ctx, suspended.RunID)
	assert.ErrorIs(t, err, api.ErrRunNotFound)

	isSuspended, err = f.engine.Suspended(ctx, suspended.RunID)
	require.NoError(t, err)
	assert.False(t, isSuspended)
}

func TestResumeFailureRetainsSuspendedRun(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)
	ctx := context.Background()

	st := workflow.NewRunState(highValueRequest("book this shipment"))
	suspended, err := f.engine.Run(ctx, st)
	require.NoError(t, err)
	require.NotEmpty(t, suspended.InterruptID)

	decided, err := f.gate.Approve(ctx, suspended.InterruptID, "manager-7")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.engine.Resume(
		cancelled, suspended.RunID, approval.ResumeDecision(decided),
	)
	require.Error(t, err)

	// the parked pair survives the failed traversal
	_, err = f.runs.Get(ctx, suspended.RunID)
	require.NoError(t, err)

	// and a later retry carries the run through to booking
	final, err := f.engine.Resume(
		ctx, suspended.RunID, approval.ResumeDecision(decided),
	)
	require.NoError(t, err)
	require.NotNil(t, final.Booking)
	assert.Equal(t, "TRACK-B-001", final.Booking.TrackingNumber)

	_, err = f.runs.Get(ctx, suspended.RunID)
	assert.ErrorIs(t, err, api.ErrRunNotFound)
}

func TestHighValueBookingRejected(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)
	ctx := context.Background()

	st := workflow.NewRunState(highValueRequest("book this shipment"))
	suspended, err := f.engine.Run(ctx, st)
	require.NoError(t, err)
	require.NotEmpty(t, suspended.InterruptID)

	decided, err := f.gate.Reject(
		ctx, suspended.InterruptID, "manager-7", "over budget",
	)
	require.NoError(t, err)

	final, err := f.engine.Resume(
		ctx, suspended.RunID, approval.ResumeDecision(decided),
	)
	require.NoError(t, err)

	assert.Equal(t, api.ApprovalRejected, final.Approval)
	assert.Nil(t, final.Booking)
	assert.Contains(t, final.Response, "not approved")
}

func TestResumeUnknownRun(t *testing.T) {
	f := newFixture(t, api.StrategyCheapest)

	_, err := f.engine.Resume(
		context.Background(), "missing-run", api.Decision{
			Status: api.ApprovalApproved,
		},
	)
	assert.ErrorIs(t, err, api.ErrRunNotFound)
}

func TestHopBound(t *testing.T) {
	graph := &workflow.Graph{
		Entry: "spin",
		Handlers: map[api.StepID]workflow.Handler{
			"spin": func(
				context.Context, *api.RunState,
			) (*workflow.Update, error) {
				return &workflow.Update{}, nil
			},
		},
		Transitions: map[api.StepID]workflow.Transition{
			"spin": func(*api.RunState) api.StepID {
				return "spin"
			},
		},
	}
	engine := workflow.NewEngine(
		graph, workflow.NewMemoryRunStore(), nil, 10,
	)

	st := workflow.NewRunState(&api.PromptRequest{Prompt: "loop"})
	_, err := engine.Run(context.Background(), st)
	assert.ErrorIs(t, err, api.ErrRunBoundExceeded)
}

func TestRunEventsPublished(t *testing.T) {
	hub := workflow.NewHub()
	defer hub.Close()
	consumer := hub.NewConsumer()
	defer consumer.Close()

	registry := carrier.NewRegistry()
	registry.Register(&scriptedAdapter{
		id:    "carrier-a",
		quote: api.RateQuote{Provider: "carrier-a", Price: 10.0},
	})
	policy, err := approval.NewPolicy("value > limit", 5000.0)
	require.NoError(t, err)
	graph := workflow.NewLogisticsGraph(workflow.Deps{
		Aggregator: aggregator.New(registry, time.Second),
		Gate:       approval.NewGate(approval.NewMemoryStore(), policy),
		Classifier: intent.KeywordClassifier{},
		Strategy:   api.StrategyCheapest,
	})
	engine := workflow.NewEngine(
		graph, workflow.NewMemoryRunStore(), hub, 25,
	)

	st := workflow.NewRunState(&api.PromptRequest{
		Prompt:      "can you ship this?",
		Origin:      "10001",
		Destination: "94105",
	})
	_, err = engine.Run(context.Background(), st)
	require.NoError(t, err)

	var events []workflow.RunEvent
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-consumer.Receive():
			events = append(events, ev)
			if ev.Final {
				require.Equal(t, workflow.RunCompleted, ev.Status)
				assert.Equal(t, st.RunID, ev.RunID)
				assert.GreaterOrEqual(t, len(events), 2)
				return
			}
		case <-deadline:
			t.Fatal("no final event received")
		}
	}
}

func TestCancelledRunPublishesFinalFailure(t *testing.T) {
	hub := workflow.NewHub()
	defer hub.Close()
	consumer := hub.NewConsumer()
	defer consumer.Close()

	registry := carrier.NewRegistry()
	registry.Register(&scriptedAdapter{id: "carrier-a"})
	policy, err := approval.NewPolicy("value > limit", 5000.0)
	require.NoError(t, err)
	graph := workflow.NewLogisticsGraph(workflow.Deps{
		Aggregator: aggregator.New(registry, time.Second),
		Gate:       approval.NewGate(approval.NewMemoryStore(), policy),
		Classifier: intent.KeywordClassifier{},
		Strategy:   api.StrategyCheapest,
	})
	engine := workflow.NewEngine(
		graph, workflow.NewMemoryRunStore(), hub, 25,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := workflow.NewRunState(&api.PromptRequest{Prompt: "hello"})
	_, err = engine.Run(ctx, st)
	require.ErrorIs(t, err, context.Canceled)

	// streaming clients rely on a terminal event to stop reading
	select {
	case ev := <-consumer.Receive():
		assert.True(t, ev.Final)
		assert.Equal(t, workflow.RunFailed, ev.Status)
		assert.Equal(t, st.RunID, ev.RunID)
	case <-time.After(time.Second):
		t.Fatal("no final event received")
	}
}

func TestStateMergeSemantics(t *testing.T) {
	entered := 0
	graph := &workflow.Graph{
		Entry: "first",
		Handlers: map[api.StepID]workflow.Handler{
			"first": func(
				context.Context, *api.RunState,
			) (*workflow.Update, error) {
				serviceable := true
				return &workflow.Update{
					Origin:      "10001",
					Serviceable: &serviceable,
					Messages: []api.Message{{
						Role: "assistant", Content: "one",
					}},
				}, nil
			},
			"second": func(
				_ context.Context, st *api.RunState,
			) (*workflow.Update, error) {
				entered++
				// zero-valued scalars must not clobber prior values
				assert.Equal(t, "10001", st.Origin)
				require.NotNil(t, st.Serviceable)
				return &workflow.Update{
					Messages: []api.Message{{
						Role: "assistant", Content: "two",
					}},
				}, nil
			},
		},
		Transitions: map[api.StepID]workflow.Transition{
			"first":  func(*api.RunState) api.StepID { return "second" },
			"second": func(*api.RunState) api.StepID { return api.StepEnd },
		},
	}
	engine := workflow.NewEngine(
		graph, workflow.NewMemoryRunStore(), nil, 25,
	)

	st := workflow.NewRunState(&api.PromptRequest{Prompt: "merge"})
	final, err := engine.Run(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, 1, entered)
	assert.Equal(t, "10001", final.Origin)
	// user prompt plus the two assistant entries, in order
	require.Len(t, final.Messages, 3)
	assert.Equal(t, "one", final.Messages[1].Content)
	assert.Equal(t, "two", final.Messages[2].Content)
	assert.Equal(t, "two", final.Response)
}
