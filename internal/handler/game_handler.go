package handler

import (
	"context"
	"fmt"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/dto"
	"ash-trivia/internal/logger"
	"ash-trivia/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type GameStore interface {
	UpsertGame(ctx context.Context, g *domain.Game) (int64, error)
}

type SnapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// GameHandler keeps the played-games table that templates read from.
type GameHandler struct {
	games      GameStore
	snapshots  SnapshotInvalidator
	validation *middleware.ValidationMiddleware
}

func NewGameHandler(games GameStore, snapshots SnapshotInvalidator, vm *middleware.ValidationMiddleware) *GameHandler {
	return &GameHandler{games: games, snapshots: snapshots, validation: vm}
}

// ImportGames godoc
// @Summary Upsert played games
// @Description Inserts or updates games by canonical name and drops the cached snapshot
// @Tags games
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param request body dto.ImportGamesRequest true "Games"
// @Success 200 {object} dto.ImportGamesResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /games [put]
func (h *GameHandler) ImportGames(c *fiber.Ctx) error {
	var req dto.ImportGamesRequest
	if err := h.validation.BindJSON(c, &req); err != nil {
		return err
	}
	for i := range req.Games {
		if err := req.Games[i].Validate(); err != nil {
			return prefixValidation(fmt.Sprintf("games[%d]", i), err)
		}
	}

	ctx := c.UserContext()
	for i := range req.Games {
		if _, err := h.games.UpsertGame(ctx, &req.Games[i]); err != nil {
			return err
		}
	}
	if err := h.snapshots.Invalidate(ctx); err != nil {
		logger.Get().Warn("Failed to invalidate game snapshot cache", zap.Error(err))
	}
	return c.JSON(dto.ImportGamesResponse{Imported: len(req.Games)})
}

func prefixValidation(prefix string, err error) error {
	verrs, ok := err.(domain.ValidationErrors)
	if !ok {
		return err
	}
	out := make(domain.ValidationErrors, len(verrs))
	for i, v := range verrs {
		out[i] = domain.ValidationError{Field: prefix + "." + v.Field, Message: v.Message}
	}
	return out
}
