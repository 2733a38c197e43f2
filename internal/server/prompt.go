package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courierhq/dispatch/internal/workflow"
	"github.com/courierhq/dispatch/pkg/api"
)

const (
	statusCompleted       = "completed"
	statusPendingApproval = "pending_approval"
)

var ErrMissingPrompt = errors.New("prompt is required")

func (s *Server) handlePrompt(c *gin.Context) {
	req, ok := bindPrompt(c)
	if !ok {
		return
	}

	st := workflow.NewRunState(req)
	final, err := s.engine.Run(c.Request.Context(), st)
	if err != nil {
		c.JSON(statusForError(err), api.ErrorResponse{
			Error:  err.Error(),
			Status: statusForError(err),
		})
		return
	}

	c.JSON(http.StatusOK, promptResponse(final))
}

// handlePromptStream runs the workflow while relaying its run events as
// NDJSON lines. The order id travels in a response header so clients can
// correlate before the first line arrives
func (s *Server) handlePromptStream(c *gin.Context) {
	req, ok := bindPrompt(c)
	if !ok {
		return
	}

	consumer := s.hub.NewConsumer()
	defer consumer.Close()

	st := workflow.NewRunState(req)
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("X-Order-ID", st.OrderID)
	c.Status(http.StatusOK)

	done := make(chan error, 1)
	go func() {
		_, err := s.engine.Run(c.Request.Context(), st)
		done <- err
	}()

	enc := json.NewEncoder(c.Writer)
	for {
		select {
		case ev, ok := <-consumer.Receive():
			if !ok {
				return
			}
			if ev.RunID != st.RunID {
				continue
			}
			_ = enc.Encode(streamEvent(ev))
			c.Writer.Flush()
			if ev.Final {
				<-done
				return
			}

		case <-c.Request.Context().Done():
			return
		}
	}
}

func bindPrompt(c *gin.Context) (*api.PromptRequest, bool) {
	var req api.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return nil, false
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrMissingPrompt.Error(),
			Status: http.StatusBadRequest,
		})
		return nil, false
	}
	return &req, true
}

func promptResponse(st *api.RunState) api.PromptResponse {
	status := statusCompleted
	if st.Approval == api.ApprovalPending && st.InterruptID != "" {
		status = statusPendingApproval
	}
	return api.PromptResponse{
		Response:    st.Response,
		OrderID:     st.OrderID,
		RunID:       st.RunID,
		Status:      status,
		InterruptID: st.InterruptID,
	}
}

func streamEvent(ev workflow.RunEvent) api.StreamEvent {
	return api.StreamEvent{
		Step:        ev.Step,
		Content:     ev.Content,
		Error:       ev.Error,
		InterruptID: ev.InterruptID,
		Final:       ev.Final,
		Status:      string(ev.Status),
	}
}

// statusForError maps the error taxonomy onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, api.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrProviderNotFound),
		errors.Is(err, api.ErrRunNotFound),
		errors.Is(err, api.ErrApprovalNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrApprovalInvalidState):
		return http.StatusConflict
	case errors.Is(err, api.ErrNoProviderAvailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
