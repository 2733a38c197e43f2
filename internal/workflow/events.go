package workflow

import (
	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/courierhq/dispatch/pkg/api"
)

type (
	// RunEvent is published after each step so streaming responses and
	// websocket clients can observe run progress
	RunEvent struct {
		RunID       api.RunID  `json:"run_id"`
		Step        api.StepID `json:"step"`
		Status      RunStatus  `json:"status"`
		Content     string     `json:"content,omitempty"`
		InterruptID string     `json:"interrupt_id,omitempty"`
		Error       string     `json:"error,omitempty"`
		Final       bool       `json:"final,omitempty"`
	}

	// RunStatus describes the run's progress at the time of the event
	RunStatus string

	// Hub fans run events out to all subscribed consumers
	Hub struct {
		topic topic.Topic[RunEvent]
		prod  topic.Producer[RunEvent]
	}
)

const (
	RunStepCompleted RunStatus = "step_completed"
	RunSuspended     RunStatus = "suspended"
	RunCompleted     RunStatus = "completed"
	RunFailed        RunStatus = "failed"
)

// NewHub creates a run event hub
func NewHub() *Hub {
	t := caravan.NewTopic[RunEvent]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish broadcasts an event to every consumer
func (h *Hub) Publish(ev RunEvent) {
	h.prod.Send() <- ev
}

// NewConsumer subscribes to events published after this call
func (h *Hub) NewConsumer() topic.Consumer[RunEvent] {
	return h.topic.NewConsumer()
}

// Close stops the hub's producer
func (h *Hub) Close() {
	h.prod.Close()
}
