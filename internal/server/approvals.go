package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/pkg/api"
	"github.com/courierhq/dispatch/pkg/log"
)

var ErrMissingInterruptID = errors.New("interrupt_id is required")

func (s *Server) listPendingApprovals(c *gin.Context) {
	pending, err := s.gate.Pending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.PendingApprovalsResponse{
		Pending: pending,
		Count:   len(pending),
	})
}

func (s *Server) findPendingForResource(c *gin.Context) {
	resourceID := c.Param("resourceID")

	interrupt, err := s.gate.FindPendingForResource(
		c.Request.Context(), resourceID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusInternalServerError,
		})
		return
	}
	if interrupt == nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error: fmt.Sprintf("no pending approval for resource %s",
				resourceID),
			Status: http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, interrupt)
}

func (s *Server) handleApprove(c *gin.Context) {
	var req api.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}
	if req.InterruptID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrMissingInterruptID.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	interrupt, err := s.gate.Approve(
		c.Request.Context(), req.InterruptID, req.ApproverID,
	)
	if err != nil {
		c.JSON(statusForError(err), api.ErrorResponse{
			Error:  err.Error(),
			Status: statusForError(err),
		})
		return
	}

	c.JSON(http.StatusOK, s.resumeRun(c, interrupt))
}

func (s *Server) handleReject(c *gin.Context) {
	var req api.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}
	if req.InterruptID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrMissingInterruptID.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	interrupt, err := s.gate.Reject(
		c.Request.Context(), req.InterruptID, req.ApproverID, req.Reason,
	)
	if err != nil {
		c.JSON(statusForError(err), api.ErrorResponse{
			Error:  err.Error(),
			Status: statusForError(err),
		})
		return
	}

	c.JSON(http.StatusOK, s.resumeRun(c, interrupt))
}

// resumeRun resumes the suspended workflow behind a decided interrupt. A
// missing run is not an error: the decision stands as an audit record even
// when nothing is parked behind it
func (s *Server) resumeRun(
	c *gin.Context, interrupt *api.Interrupt,
) api.DecisionResponse {
	resp := api.DecisionResponse{
		Status:      interrupt.Status,
		InterruptID: interrupt.ID,
		ResourceID:  interrupt.ResourceID,
		DecidedBy:   interrupt.DecidedBy,
		Reason:      interrupt.DecisionReason,
		DecidedAt:   interrupt.DecidedAt,
	}

	runID, ok := interrupt.Context["run_id"].(string)
	if !ok || runID == "" {
		return resp
	}

	final, err := s.engine.Resume(
		c.Request.Context(), api.RunID(runID), approval.ResumeDecision(interrupt),
	)
	if err != nil {
		slog.Warn("Run resumption failed",
			log.RunID(runID),
			log.InterruptID(interrupt.ID),
			log.Error(err))
		resp.RunStatus = "resume_failed"
		return resp
	}

	resp.RunStatus = statusCompleted
	resp.Response = final.Response
	return resp
}
