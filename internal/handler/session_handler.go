package handler

import (
	"context"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/dto"
	"ash-trivia/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SessionService is the part of the session manager the API exposes.
type SessionService interface {
	StartSession(ctx context.Context, questionID int64, actor string, duration time.Duration) (*domain.Session, error)
	SubmitAnswer(ctx context.Context, sessionID int64, userID, raw string) (*domain.AnswerSubmission, error)
	CloseSession(ctx context.Context, sessionID int64, actor string) (*domain.Session, error)
	ScoreSession(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error)
	Results(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error)
	GetActiveSession(ctx context.Context) (*domain.Session, error)
	ListAnswers(ctx context.Context, sessionID int64) ([]*domain.AnswerSubmission, error)
}

// SessionHandler handles trivia session HTTP requests
type SessionHandler struct {
	sessions        SessionService
	validation      *middleware.ValidationMiddleware
	defaultDuration time.Duration
}

// NewSessionHandler uses defaultDuration when a start request names none.
func NewSessionHandler(sessions SessionService, vm *middleware.ValidationMiddleware, defaultDuration time.Duration) *SessionHandler {
	return &SessionHandler{sessions: sessions, validation: vm, defaultDuration: defaultDuration}
}

// GetActiveSession godoc
// @Summary Get the active session
// @Description Returns the session currently accepting answers, if any
// @Tags sessions
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} dto.ActiveSessionResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /trivia/sessions/active [get]
func (h *SessionHandler) GetActiveSession(c *fiber.Ctx) error {
	s, err := h.sessions.GetActiveSession(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ActiveSessionResponse{Active: s != nil, Session: dto.NewSessionResponse(s)})
}

// StartSession godoc
// @Summary Start a session
// @Description Opens a session for an available question. Only one session can be active.
// @Tags sessions
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param request body dto.StartSessionRequest true "Question to play"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Another session is active or the question is not available"
// @Router /trivia/sessions [post]
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := h.validation.BindJSON(c, &req); err != nil {
		return err
	}
	duration := h.defaultDuration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}
	s, err := h.sessions.StartSession(c.UserContext(), req.QuestionID, middleware.UserID(c), duration)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSessionResponse(s))
}

// CloseSession godoc
// @Summary Close a session
// @Tags sessions
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Session is not active"
// @Router /trivia/sessions/{id}/close [post]
func (h *SessionHandler) CloseSession(c *fiber.Ctx) error {
	s, err := h.sessions.CloseSession(c.UserContext(), middleware.ParamID(c), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSessionResponse(s))
}

// ScoreSession godoc
// @Summary Score a closed session
// @Tags sessions
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} dto.ResultsResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Session is not closed"
// @Router /trivia/sessions/{id}/score [post]
func (h *SessionHandler) ScoreSession(c *fiber.Ctx) error {
	summary, err := h.sessions.ScoreSession(c.UserContext(), middleware.ParamID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewResultsResponse(summary))
}

// Results godoc
// @Summary Get session results
// @Tags sessions
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} dto.ResultsResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Session is not scored yet"
// @Router /trivia/sessions/{id}/results [get]
func (h *SessionHandler) Results(c *fiber.Ctx) error {
	summary, err := h.sessions.Results(c.UserContext(), middleware.ParamID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewResultsResponse(summary))
}

// SubmitAnswer godoc
// @Summary Submit an answer
// @Description Evaluates a chat answer. Each user may answer once per session.
// @Tags sessions
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body dto.SubmitAnswerRequest true "Answer"
// @Success 201 {object} dto.AnswerResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse "Session closed or user already answered"
// @Router /trivia/sessions/{id}/answers [post]
func (h *SessionHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := h.validation.BindJSON(c, &req); err != nil {
		return err
	}
	a, err := h.sessions.SubmitAnswer(c.UserContext(), middleware.ParamID(c), req.UserID, req.Answer)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAnswerResponse(a))
}

// ListAnswers godoc
// @Summary List a session's answers
// @Tags sessions
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {array} dto.AnswerResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trivia/sessions/{id}/answers [get]
func (h *SessionHandler) ListAnswers(c *fiber.Ctx) error {
	answers, err := h.sessions.ListAnswers(c.UserContext(), middleware.ParamID(c))
	if err != nil {
		return err
	}
	out := make([]dto.AnswerResponse, 0, len(answers))
	for _, a := range answers {
		out = append(out, dto.NewAnswerResponse(a))
	}
	return c.JSON(out)
}
