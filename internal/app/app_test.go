package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ash-trivia/internal/app"
	"ash-trivia/internal/config"
	"ash-trivia/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DB:     config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "ash.db")},
		Auth:   config.AuthConfig{JWTSecret: "app-test-secret-key", Issuer: "ash-trivia", TokenTTL: time.Hour},
		LLM:    config.LLMConfig{Provider: "none"},
		Trivia: config.TriviaConfig{HistorySize: 10, MaxRegenerations: 1, SessionDuration: time.Minute},
	}
}

func TestApp_SQLiteRound(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, testConfig(t), zap.NewNop(), app.Options{Migrate: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
	_, err = a.RequireAuth()
	require.NoError(t, err)

	for _, g := range []domain.Game{
		{CanonicalName: "Hades", TotalPlaytimeMinutes: 900, TotalEpisodes: 12, CompletionStatus: domain.CompletionCompleted},
		{CanonicalName: "Celeste", TotalPlaytimeMinutes: 300, TotalEpisodes: 4, CompletionStatus: domain.CompletionCompleted},
	} {
		g := g
		_, err := a.Games.UpsertGame(ctx, &g)
		require.NoError(t, err)
	}

	q, err := a.Questions.GenerateApproved(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusAvailable, q.Status)

	s, err := a.Sessions.StartSession(ctx, q.ID, "mod-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, s.CalculatedAnswer)

	_, err = a.Sessions.StartSession(ctx, q.ID, "mod-1", time.Minute)
	assert.True(t, domain.IsCode(err, domain.ErrConflict))

	hit, err := a.Sessions.SubmitAnswer(ctx, s.ID, "viewer-1", s.CalculatedAnswer)
	require.NoError(t, err)
	assert.True(t, hit.IsCorrect)

	_, err = a.Sessions.SubmitAnswer(ctx, s.ID, "viewer-2", "definitely not a game")
	require.NoError(t, err)

	_, err = a.Sessions.SubmitAnswer(ctx, s.ID, "viewer-1", "again")
	assert.True(t, domain.IsCode(err, domain.ErrDuplicateSubmission))

	_, err = a.Sessions.CloseSession(ctx, s.ID, "mod-1")
	require.NoError(t, err)
	summary, err := a.Sessions.ScoreSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ParticipantCount)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Equal(t, []string{"viewer-1"}, summary.Winners)

	stored, err := a.Questions.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusAnswered, stored.Status)

	n, err := a.Sessions.RecoverHangingSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApp_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Driver = "oracle"
	_, err := app.New(context.Background(), cfg, zap.NewNop(), app.Options{})
	assert.Error(t, err)
}

func TestApp_RequireAuthWithoutSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.Options{Migrate: true})
	require.NoError(t, err)
	defer a.Close()
	_, err = a.RequireAuth()
	assert.Error(t, err)
}
