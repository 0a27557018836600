package handler

import (
	"ash-trivia/internal/approval"
	"ash-trivia/internal/domain"
	"ash-trivia/internal/dto"
	"ash-trivia/internal/middleware"
	"ash-trivia/internal/util"

	"github.com/gofiber/fiber/v2"
)

type ApprovalInbox interface {
	Pending(approverID string) []approval.Ticket
	Resolve(ticketID, approverID string, d approval.Decision) error
}

// ApprovalHandler lets the approver answer pending questions. The token's
// subject must be the approver the question was presented to.
type ApprovalHandler struct {
	inbox      ApprovalInbox
	validation *middleware.ValidationMiddleware
}

func NewApprovalHandler(inbox ApprovalInbox, vm *middleware.ValidationMiddleware) *ApprovalHandler {
	return &ApprovalHandler{inbox: inbox, validation: vm}
}

// ListPending godoc
// @Summary List pending approvals
// @Tags approvals
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} dto.ApprovalTicketResponse
// @Router /approvals [get]
func (h *ApprovalHandler) ListPending(c *fiber.Ctx) error {
	tickets := h.inbox.Pending(middleware.UserID(c))
	out := make([]dto.ApprovalTicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, dto.NewApprovalTicketResponse(t))
	}
	return c.JSON(out)
}

// Decide godoc
// @Summary Answer a pending approval
// @Tags approvals
// @Security ApiKeyAuth
// @Accept json
// @Param id path string true "Ticket ID"
// @Param request body dto.ApprovalDecisionRequest true "Decision"
// @Success 204
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse "Ticket belongs to another approver"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /approvals/{id} [post]
func (h *ApprovalHandler) Decide(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	if !util.IsULID(ticketID) {
		return domain.NewNotFoundError("approval ticket not found: " + ticketID)
	}
	var req dto.ApprovalDecisionRequest
	if err := h.validation.BindJSON(c, &req); err != nil {
		return err
	}
	if err := h.inbox.Resolve(ticketID, middleware.UserID(c), req.ToDecision()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
