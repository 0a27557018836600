// @title Ash Trivia API
// @version 1.0
// @description Trivia sessions, answer evaluation and question approval for the Ash chat bot.
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ash-trivia/internal/app"
	"ash-trivia/internal/config"
	"ash-trivia/internal/handler"
	"ash-trivia/internal/logger"
	"ash-trivia/internal/middleware"

	_ "ash-trivia/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLogger, app.Options{Migrate: true})
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	auth, err := a.RequireAuth()
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}

	if n, err := a.Sessions.RecoverHangingSessions(ctx); err != nil {
		appLogger.Error("Failed to recover hanging sessions", zap.Error(err))
	} else if n > 0 {
		appLogger.Info("Recovered hanging sessions", zap.Int("count", n))
	}

	jobs := handler.NewBackground(ctx)
	vm := middleware.NewValidationMiddleware(nil)
	checks := map[string]handler.Pinger{"database": a.DB}
	if a.Cache != nil {
		checks["redis"] = handler.PingFunc(a.Cache.Ping)
	}

	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})
	fiberApp.Use(middleware.RequestLogger())
	fiberApp.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	fiberApp.Use(recover.New())
	fiberApp.Get("/swagger/*", swagger.HandlerDefault)

	handler.Register(fiberApp, handler.Routes{
		Auth:       auth,
		Validation: vm,
		Sessions:   handler.NewSessionHandler(a.Sessions, vm, cfg.Trivia.SessionDuration),
		Questions:  handler.NewQuestionHandler(a.Questions, a.Rounds, jobs, vm),
		Approvals:  handler.NewApprovalHandler(a.Inbox, vm),
		Games:      handler.NewGameHandler(a.Games, a.Snapshots, vm),
		Health:     handler.NewHealthHandler(checks, a.Rounds, cfg.Trivia.ApproverID),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		return fiberApp.Listen(":" + strconv.Itoa(cfg.Server.Port))
	})
	g.Go(func() error {
		return a.Rounds.Start(gctx, cfg.Trivia.RoundInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return fiberApp.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Server stopped with error", zap.Error(err))
	}
	stop()
	jobs.Wait()
	appLogger.Info("Server exited gracefully")
}
