package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

// Engine drives a Graph over run state. Each invocation walks the steps
// from the entry (or a persisted pending step on resume) until it reaches
// the terminal step, suspends, or exhausts the hop bound
type Engine struct {
	graph   *Graph
	runs    RunStore
	hub     *Hub
	maxHops int
}

// NewEngine creates an engine over the given graph. The hub may be nil
// when no observer needs run events
func NewEngine(
	graph *Graph, runs RunStore, hub *Hub, maxHops int,
) *Engine {
	return &Engine{
		graph:   graph,
		runs:    runs,
		hub:     hub,
		maxHops: maxHops,
	}
}

// NewRunState seeds run state from an inbound prompt. Missing order ids
// are generated so every run has a resource to hang approvals on
func NewRunState(req *api.PromptRequest) *api.RunState {
	orderID := req.OrderID
	if orderID == "" {
		orderID = "ORD-" + uuid.NewString()[:8]
	}
	return &api.RunState{
		RunID:       api.RunID(uuid.NewString()),
		OrderID:     orderID,
		CustomerID:  req.CustomerID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Prompt:      req.Prompt,
		Shipments:   req.Shipments,
		Messages: []api.Message{
			{Role: "user", Content: req.Prompt},
		},
	}
}

// Run executes a fresh run from the graph's entry step
func (e *Engine) Run(
	ctx context.Context, st *api.RunState,
) (*api.RunState, error) {
	slog.Info("Run started",
		log.RunID(st.RunID),
		slog.String("order_id", st.OrderID))
	st, _, err := e.loop(ctx, st, e.graph.Entry)
	return st, err
}

// Resume loads the suspended run, applies the decision to its state, and
// re-enters the loop at the persisted pending step. The hop budget resets:
// the bound guards a single traversal, not the run's lifetime
func (e *Engine) Resume(
	ctx context.Context, id api.RunID, decision api.Decision,
) (*api.RunState, error) {
	suspended, err := e.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := suspended.State
	st.Approval = decision.Status
	st.Messages = append(st.Messages, api.Message{
		Role: "system",
		Content: fmt.Sprintf("Approval decision: %s by %s",
			decision.Status, decision.DecidedBy),
	})

	slog.Info("Run resumed",
		log.RunID(id),
		log.StepID(suspended.PendingStep),
		log.InterruptID(decision.InterruptID),
		slog.String("decision", string(decision.Status)))

	// The persisted pair outlives a failed traversal so it can be retried;
	// it is consumed only once the run leaves the suspended state
	st, parked, loopErr := e.loop(ctx, st, suspended.PendingStep)
	if loopErr != nil {
		return st, loopErr
	}
	if !parked {
		if err := e.runs.Delete(ctx, id); err != nil {
			slog.Warn("Suspended run cleanup failed",
				log.RunID(id), log.Error(err))
		}
	}
	return st, nil
}

// loop is the bounded step interpreter shared by Run and Resume. The
// suspended result distinguishes a run parked for a decision from one that
// reached the terminal step
func (e *Engine) loop(
	ctx context.Context, st *api.RunState, current api.StepID,
) (*api.RunState, bool, error) {
	started := time.Now()
	for hops := 0; ; hops++ {
		if current == api.StepEnd {
			if st.Response == "" {
				st.Response = st.LastAssistantMessage()
			}
			e.publish(RunEvent{
				RunID:   st.RunID,
				Step:    current,
				Status:  RunCompleted,
				Content: st.Response,
				Final:   true,
			})
			slog.Info("Run completed",
				log.RunID(st.RunID),
				slog.Int("hops", hops),
				slog.Duration("elapsed", time.Since(started)))
			return st, false, nil
		}

		if hops >= e.maxHops {
			err := fmt.Errorf(
				"%w: %d steps without reaching a terminal step",
				api.ErrRunBoundExceeded, hops,
			)
			st.Errors = append(st.Errors, err.Error())
			e.publish(RunEvent{
				RunID:  st.RunID,
				Step:   current,
				Status: RunFailed,
				Error:  err.Error(),
				Final:  true,
			})
			return st, false, err
		}

		if err := ctx.Err(); err != nil {
			e.publish(RunEvent{
				RunID:  st.RunID,
				Step:   current,
				Status: RunFailed,
				Error:  err.Error(),
				Final:  true,
			})
			return st, false, err
		}

		handler, ok := e.graph.Handlers[current]
		if !ok {
			return st, false,
				fmt.Errorf("no handler for step %q", current)
		}

		upd, err := handler(ctx, st)
		if err != nil {
			st.Errors = append(st.Errors, err.Error())
			e.publish(RunEvent{
				RunID:  st.RunID,
				Step:   current,
				Status: RunFailed,
				Error:  err.Error(),
				Final:  true,
			})
			slog.Error("Step failed",
				log.RunID(st.RunID),
				log.StepID(current),
				log.Error(err))
			return st, false, err
		}
		upd.apply(st)

		if upd.Suspend {
			suspended := &SuspendedRun{State: st, PendingStep: current}
			if err := e.runs.Put(ctx, st.RunID, suspended); err != nil {
				e.publish(RunEvent{
					RunID:  st.RunID,
					Step:   current,
					Status: RunFailed,
					Error:  err.Error(),
					Final:  true,
				})
				return st, false, err
			}
			e.publish(RunEvent{
				RunID:       st.RunID,
				Step:        current,
				Status:      RunSuspended,
				Content:     st.LastAssistantMessage(),
				InterruptID: st.InterruptID,
				Final:       true,
			})
			slog.Info("Run suspended",
				log.RunID(st.RunID),
				log.StepID(current),
				log.InterruptID(st.InterruptID))
			return st, true, nil
		}

		e.publish(RunEvent{
			RunID:   st.RunID,
			Step:    current,
			Status:  RunStepCompleted,
			Content: stepContent(upd),
		})

		transition, ok := e.graph.Transitions[current]
		if !ok {
			return st, false,
				fmt.Errorf("no transition for step %q", current)
		}
		current = transition(st)
	}
}

// Suspended reports whether the run is currently parked awaiting a
// decision
func (e *Engine) Suspended(
	ctx context.Context, id api.RunID,
) (bool, error) {
	if _, err := e.runs.Get(ctx, id); err != nil {
		if errors.Is(err, api.ErrRunNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *Engine) publish(ev RunEvent) {
	if e.hub != nil {
		e.hub.Publish(ev)
	}
}

// stepContent extracts the update's last assistant message for streaming
func stepContent(upd *Update) string {
	for i := len(upd.Messages) - 1; i >= 0; i-- {
		if upd.Messages[i].Role == "assistant" {
			return upd.Messages[i].Content
		}
	}
	return ""
}
