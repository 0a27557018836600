package handler

import (
	"context"
	"sync"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/dto"
	"ash-trivia/internal/logger"
	"ash-trivia/internal/middleware"
	"ash-trivia/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type QuestionService interface {
	AddManual(ctx context.Context, in service.ManualQuestion) (*domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (*domain.Question, error)
	ListQuestions(ctx context.Context, status domain.QuestionStatus, limit int) ([]*domain.Question, error)
	GenerateApproved(ctx context.Context) (*domain.Question, error)
}

type RoundService interface {
	RunRound(ctx context.Context, actor string) (*domain.ResultsSummary, error)
	Running() bool
}

// Background runs request-triggered work that outlives the request. Jobs
// get ctx, which should end when the server shuts down.
type Background struct {
	ctx context.Context
	wg  sync.WaitGroup
}

func NewBackground(ctx context.Context) *Background {
	return &Background{ctx: ctx}
}

func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fn(b.ctx); err != nil {
			logger.Get().Error("Background job failed", zap.String("job", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every started job has returned.
func (b *Background) Wait() {
	b.wg.Wait()
}

// QuestionHandler handles question and round HTTP requests
type QuestionHandler struct {
	questions  QuestionService
	rounds     RoundService
	jobs       *Background
	validation *middleware.ValidationMiddleware
}

func NewQuestionHandler(questions QuestionService, rounds RoundService, jobs *Background, vm *middleware.ValidationMiddleware) *QuestionHandler {
	return &QuestionHandler{questions: questions, rounds: rounds, jobs: jobs, validation: vm}
}

// CreateQuestion godoc
// @Summary Add a manual question
// @Description Moderator questions skip approval and are available at once
// @Tags questions
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateQuestionRequest true "Question"
// @Success 201 {object} dto.QuestionResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /trivia/questions [post]
func (h *QuestionHandler) CreateQuestion(c *fiber.Ctx) error {
	var req dto.CreateQuestionRequest
	if err := h.validation.BindJSON(c, &req); err != nil {
		return err
	}
	q, err := h.questions.AddManual(c.UserContext(), service.ManualQuestion{
		Text:            req.Text,
		Answer:          req.Answer,
		Category:        req.Category,
		DifficultyLevel: req.DifficultyLevel,
		Type:            domain.QuestionType(req.Type),
		Choices:         req.Choices,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewQuestionResponse(q))
}

// GetQuestion godoc
// @Summary Get a question
// @Tags questions
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} dto.QuestionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /trivia/questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *fiber.Ctx) error {
	q, err := h.questions.GetQuestion(c.UserContext(), middleware.ParamID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuestionResponse(q))
}

// ListQuestions godoc
// @Summary List questions by status
// @Tags questions
// @Security ApiKeyAuth
// @Produce json
// @Param status query string false "pending_approval, available, answered or rejected" default(available)
// @Param limit query int false "Maximum number of questions" default(50)
// @Success 200 {array} dto.QuestionResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /trivia/questions [get]
func (h *QuestionHandler) ListQuestions(c *fiber.Ctx) error {
	var query dto.ListQuestionsQuery
	if err := h.validation.BindQuery(c, &query); err != nil {
		return err
	}
	status := domain.QuestionStatus(query.Status)
	if status == "" {
		status = domain.QuestionStatusAvailable
	}
	qs, err := h.questions.ListQuestions(c.UserContext(), status, query.Limit)
	if err != nil {
		return err
	}
	out := make([]dto.QuestionResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, dto.NewQuestionResponse(q))
	}
	return c.JSON(out)
}

// GenerateQuestion godoc
// @Summary Generate a question
// @Description Generates a question and runs the approval conversation in the background
// @Tags questions
// @Security ApiKeyAuth
// @Produce json
// @Success 202 {object} dto.AcceptedResponse
// @Router /trivia/questions/generate [post]
func (h *QuestionHandler) GenerateQuestion(c *fiber.Ctx) error {
	actor := middleware.UserID(c)
	h.jobs.Go("generate_question", func(ctx context.Context) error {
		q, err := h.questions.GenerateApproved(ctx)
		if err != nil {
			return err
		}
		logger.Get().Info("Requested question ready",
			zap.Int64("question_id", q.ID),
			zap.String("status", string(q.Status)),
			zap.String("requested_by", actor))
		return nil
	})
	return c.Status(fiber.StatusAccepted).JSON(dto.AcceptedResponse{
		Status:  "accepted",
		Message: "question generation started",
	})
}

// StartRound godoc
// @Summary Start a round
// @Description Plays a full round (question, session, close, score) in the background
// @Tags rounds
// @Security ApiKeyAuth
// @Produce json
// @Success 202 {object} dto.AcceptedResponse
// @Failure 409 {object} middleware.ErrorResponse "A round is already running"
// @Router /trivia/rounds [post]
func (h *QuestionHandler) StartRound(c *fiber.Ctx) error {
	if h.rounds.Running() {
		return domain.NewConflictError("a trivia round is already running")
	}
	actor := middleware.UserID(c)
	h.jobs.Go("round", func(ctx context.Context) error {
		summary, err := h.rounds.RunRound(ctx, actor)
		if err != nil {
			return err
		}
		logger.Get().Info("Requested round finished",
			zap.Int64("session_id", summary.SessionID),
			zap.Int("participants", summary.ParticipantCount),
			zap.Strings("winners", summary.Winners))
		return nil
	})
	return c.Status(fiber.StatusAccepted).JSON(dto.AcceptedResponse{
		Status:  "accepted",
		Message: "round started",
	})
}
