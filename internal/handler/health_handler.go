package handler

import (
	"context"
	"time"

	"ash-trivia/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// Pinger is satisfied by *sqlx.DB and domain.Cache.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a Ping method with a different name.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks     map[string]Pinger
	rounds     RoundService
	approverID string
	startedAt  time.Time
}

func NewHealthHandler(checks map[string]Pinger, rounds RoundService, approverID string) *HealthHandler {
	return &HealthHandler{checks: checks, rounds: rounds, approverID: approverID, startedAt: time.Now()}
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:   "ok",
		Checks:   make(map[string]string, len(h.checks)),
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
		Approver: h.approverID,
	}
	if h.rounds != nil {
		resp.Round = h.rounds.Running()
	}
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}
	status := fiber.StatusOK
	if resp.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}
