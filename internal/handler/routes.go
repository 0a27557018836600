package handler

import (
	"ash-trivia/internal/dto"
	"ash-trivia/internal/middleware"
	"ash-trivia/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Routes groups the handlers mounted by Register.
type Routes struct {
	Auth       service.AuthService
	Validation *middleware.ValidationMiddleware
	Sessions   *SessionHandler
	Questions  *QuestionHandler
	Approvals  *ApprovalHandler
	Games      *GameHandler
	Health     *HealthHandler
}

// Register mounts the API under /api plus the public health route.
func Register(app *fiber.App, r Routes) {
	if r.Health != nil {
		app.Get("/health", r.Health.Health)
	}

	moderator := middleware.Protected(r.Auth, dto.RoleModerator)
	anyRole := middleware.Protected(r.Auth)
	answerers := middleware.Protected(r.Auth, dto.RoleBot, dto.RoleModerator)
	id := r.Validation.ValidateParamID()

	api := app.Group("/api")

	trivia := api.Group("/trivia")
	sessions := trivia.Group("/sessions")
	sessions.Get("/active", anyRole, r.Sessions.GetActiveSession)
	sessions.Post("/", moderator, r.Sessions.StartSession)
	sessions.Post("/:id/close", moderator, id, r.Sessions.CloseSession)
	sessions.Post("/:id/score", moderator, id, r.Sessions.ScoreSession)
	sessions.Get("/:id/results", anyRole, id, r.Sessions.Results)
	sessions.Post("/:id/answers", answerers, id, r.Sessions.SubmitAnswer)
	sessions.Get("/:id/answers", moderator, id, r.Sessions.ListAnswers)

	questions := trivia.Group("/questions", moderator)
	questions.Get("/", r.Questions.ListQuestions)
	questions.Post("/", r.Questions.CreateQuestion)
	questions.Post("/generate", r.Questions.GenerateQuestion)
	questions.Get("/:id", id, r.Questions.GetQuestion)

	trivia.Post("/rounds", moderator, r.Questions.StartRound)

	api.Put("/games", moderator, r.Games.ImportGames)

	approvals := api.Group("/approvals", middleware.Protected(r.Auth, dto.RoleApprover))
	approvals.Get("/", r.Approvals.ListPending)
	approvals.Post("/:id", r.Approvals.Decide)
}
