package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ash-trivia/internal/domain"
	"ash-trivia/internal/repository/models"
	"ash-trivia/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const gameColumns = `id, canonical_name, alternative_names, series_name, genre, release_year, platform,
	total_episodes, total_playtime_minutes, completion_status, first_played_at`

// GameRepository reads and writes the played_games table.
type GameRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewGameRepository(db *sqlx.DB, logger *zap.Logger) *GameRepository {
	return &GameRepository{db: db, logger: logger}
}

// Snapshot loads every game. Rows that fail validation are skipped with a
// warning so one bad record does not hide the rest.
func (r *GameRepository) Snapshot(ctx context.Context) (*domain.GameSnapshot, error) {
	exec := GetExecutor(ctx, r.db)
	var rows []models.PlayedGame
	if err := exec.SelectContext(ctx, &rows, `SELECT `+gameColumns+` FROM played_games ORDER BY canonical_name`); err != nil {
		return nil, fmt.Errorf("failed to load played games: %w", err)
	}

	snap := &domain.GameSnapshot{Games: make([]domain.Game, 0, len(rows)), TakenAt: time.Now().UTC()}
	for i := range rows {
		g := toDomainGame(&rows[i])
		if err := g.Validate(); err != nil {
			r.logger.Warn("Skipping invalid game record",
				zap.Int64("game_id", g.ID), zap.String("name", g.CanonicalName), zap.Error(err))
			continue
		}
		snap.Games = append(snap.Games, *g)
	}
	return snap, nil
}

// UpsertGame inserts g or updates the row with the same canonical name.
func (r *GameRepository) UpsertGame(ctx context.Context, g *domain.Game) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	m := fromDomainGame(g)
	now := time.Now().UTC()

	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`INSERT INTO played_games (canonical_name, alternative_names, series_name, genre,
		release_year, platform, total_episodes, total_playtime_minutes, completion_status, first_played_at,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (canonical_name) DO UPDATE SET
			alternative_names = excluded.alternative_names,
			series_name = excluded.series_name,
			genre = excluded.genre,
			release_year = excluded.release_year,
			platform = excluded.platform,
			total_episodes = excluded.total_episodes,
			total_playtime_minutes = excluded.total_playtime_minutes,
			completion_status = excluded.completion_status,
			first_played_at = excluded.first_played_at,
			updated_at = excluded.updated_at
		RETURNING id`)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		m.CanonicalName, m.AlternativeNames, m.SeriesName, m.Genre,
		m.ReleaseYear, m.Platform, m.TotalEpisodes, m.TotalPlaytimeMinutes, m.CompletionStatus, m.FirstPlayedAt,
		now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert game %q: %w", g.CanonicalName, err)
	}
	g.ID = id
	return id, nil
}

func toDomainGame(m *models.PlayedGame) *domain.Game {
	g := &domain.Game{
		ID:                   m.ID,
		CanonicalName:        m.CanonicalName,
		SeriesName:           m.SeriesName.String,
		Genre:                m.Genre.String,
		Platform:             m.Platform.String,
		TotalEpisodes:        m.TotalEpisodes,
		TotalPlaytimeMinutes: m.TotalPlaytimeMinutes,
		CompletionStatus:     domain.CompletionStatus(m.CompletionStatus),
		FirstPlayedAt:        util.NullTimeToPtr(m.FirstPlayedAt),
	}
	if len(m.AlternativeNames) > 0 {
		g.AlternativeNames = []string(m.AlternativeNames)
	}
	if m.ReleaseYear.Valid {
		g.ReleaseYear = int(m.ReleaseYear.Int64)
	}
	return g
}

func fromDomainGame(g *domain.Game) *models.PlayedGame {
	m := &models.PlayedGame{
		ID:                   g.ID,
		CanonicalName:        g.CanonicalName,
		AlternativeNames:     models.StringSlice(g.AlternativeNames),
		SeriesName:           util.StringToNullString(g.SeriesName),
		Genre:                util.StringToNullString(g.Genre),
		Platform:             util.StringToNullString(g.Platform),
		TotalEpisodes:        g.TotalEpisodes,
		TotalPlaytimeMinutes: g.TotalPlaytimeMinutes,
		CompletionStatus:     string(g.CompletionStatus),
		FirstPlayedAt:        util.PtrToNullTime(g.FirstPlayedAt),
	}
	if g.ReleaseYear != 0 {
		m.ReleaseYear = sql.NullInt64{Int64: int64(g.ReleaseYear), Valid: true}
	}
	return m
}

var _ domain.GameRepository = (*GameRepository)(nil)
