// Package app wires the stores, generator, approval flow and session
// manager shared by the API server and triviactl.
package app

import (
	"context"
	"errors"
	"fmt"

	"ash-trivia/internal/adapter"
	"ash-trivia/internal/adapter/quizgen"
	"ash-trivia/internal/approval"
	"ash-trivia/internal/cache"
	"ash-trivia/internal/config"
	"ash-trivia/internal/database"
	"ash-trivia/internal/domain"
	"ash-trivia/internal/evaluator"
	"ash-trivia/internal/generator"
	"ash-trivia/internal/history"
	"ash-trivia/internal/repository"
	"ash-trivia/internal/service"
	"ash-trivia/internal/template"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *sqlx.DB
	Redis *redis.Client
	Cache domain.Cache

	Trivia    *repository.TriviaRepository
	Games     *repository.GameRepository
	Snapshots *service.SnapshotProvider
	Templates *template.Store
	Generator *generator.Generator

	Inbox     *approval.Inbox
	Questions *service.QuestionService
	Sessions  *service.SessionManager
	Rounds    *service.RoundRunner
	Auth      service.AuthService
}

// Options controls the optional parts of the wiring.
type Options struct {
	// Migrate applies pending migrations after connecting.
	Migrate bool
	// RequireRedis fails New when Redis is unreachable instead of running
	// without the snapshot, history and results caches.
	RequireRedis bool
}

// New connects to the configured stores and builds every service. Close
// releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	db, err := database.NewSQLXDB(cfg.DB.Driver, cfg.GetDSN(), logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if opts.Migrate {
		if err := database.RunMigrations(db.DB, cfg.DB.Driver, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Redis.Address != "" {
		client, err := cache.NewRedisClient(cfg.Redis)
		switch {
		case err == nil:
			a.Redis = client
			a.Cache = adapter.NewRedisCacheAdapter(client)
			logger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
		case opts.RequireRedis:
			a.Close()
			return nil, err
		default:
			logger.Warn("Redis unavailable, running without caches", zap.Error(err))
		}
	}

	a.Trivia = repository.NewTriviaRepository(db, logger)
	a.Games = repository.NewGameRepository(db, logger)
	a.Snapshots = service.NewSnapshotProvider(a.Games, a.Cache, cfg.Trivia.SnapshotCacheTTL, logger)

	model, err := quizgen.New(ctx, cfg.LLM, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Templates = template.NewStore(template.DefaultCatalog(), nil)
	hist := history.New(history.Options{
		Size:     cfg.Trivia.HistorySize,
		Cooldown: cfg.Trivia.CategoryCooldown,
	})
	var histStore generator.HistoryStore
	if a.Cache != nil {
		histStore = history.NewStore(a.Cache)
	}
	a.Generator = generator.New(a.Templates, model, hist, histStore, generator.Options{
		ModelTimeout: cfg.LLM.Timeout,
	}, logger)
	if err := a.Generator.LoadHistory(ctx); err != nil {
		logger.Warn("Could not restore question history, starting empty", zap.Error(err))
	}

	a.Inbox = approval.NewInbox()
	var approvals service.ApprovalRunner
	if cfg.Trivia.ApproverID != "" {
		approvals = approval.NewCoordinator(a.Inbox, a.Trivia, cfg.Trivia.ApprovalTimeout, logger)
	}
	a.Questions = service.NewQuestionService(a.Trivia, a.Snapshots, a.Generator, approvals,
		cfg.Trivia.ApproverID, cfg.Trivia.MaxRegenerations, logger)

	th := evaluator.Thresholds{
		FuzzyCorrect:    cfg.Trivia.Evaluator.FuzzyCorrect,
		FuzzyClose:      cfg.Trivia.Evaluator.FuzzyClose,
		OverlapClose:    cfg.Trivia.Evaluator.OverlapClose,
		NumericRelative: cfg.Trivia.Evaluator.NumericRelative,
		NumericAbsolute: cfg.Trivia.Evaluator.NumericAbsolute,
		NumericMaxDelta: cfg.Trivia.Evaluator.NumericMaxDelta,
	}
	// Sessions freeze dynamic answers from live data, not the cached snapshot.
	a.Sessions = service.NewSessionManager(a.Trivia, a.Games, a.Templates, evaluator.New(th), logger)
	a.Sessions.UseResultsCache(service.NewResultsCache(a.Cache, cfg.Trivia.ResultsCacheTTL))
	a.Rounds = service.NewRoundRunner(a.Trivia, a.Sessions, a.Questions, cfg.Trivia.SessionDuration, logger)

	if cfg.Auth.JWTSecret != "" {
		a.Auth, err = service.NewAuthService(cfg.Auth)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return a, nil
}

// RequireAuth reports a missing JWT secret as an error.
func (a *App) RequireAuth() (service.AuthService, error) {
	if a.Auth == nil {
		return nil, errors.New("auth.jwt_secret (JWT_SECRET) is not set")
	}
	return a.Auth, nil
}

// Close stops session timers and closes the connections.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}
