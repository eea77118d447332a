package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legal_marketplace_go/config"
	"legal_marketplace_go/db"
	"legal_marketplace_go/handlers"
	"legal_marketplace_go/middleware"
	"legal_marketplace_go/services"
	"legal_marketplace_go/services/jobs"
	"legal_marketplace_go/services/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := config.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		zap.L().Fatal("failed to initialize logger", zap.Error(err))
	}
	defer zap.L().Sync() //nolint:errcheck

	// Initialize database
	if err := db.Initialize(db.Options{
		Path:        cfg.DBPath,
		TursoURL:    cfg.TursoDatabaseURL,
		TursoToken:  cfg.TursoAuthToken,
		Environment: cfg.Environment,
	}); err != nil {
		zap.L().Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(services.Models()...); err != nil {
		zap.L().Fatal("failed to run migrations", zap.Error(err))
	}

	// Classification cannot run without the fallback specialty
	resolver, err := services.PrepareSpecialties(db.DB, cfg.FallbackSpecialty)
	if err != nil {
		zap.L().Fatal("failed to prepare specialties", zap.Error(err))
	}

	stores := services.InitializeStorage(cfg)
	runner := services.NewAssistantRunner(cfg)

	pipeline := services.NewCasePipeline(services.PipelineOptions{
		DB:           db.DB,
		Generator:    runner,
		Resolver:     resolver,
		Stores:       stores,
		SourceBucket: cfg.SourceBucket,
		Notifier:     services.NewEmailNotifier(cfg),
	})

	dispatcher := jobs.NewDispatcher(cfg.WorkerCount, cfg.QueueSize, pipeline.Process)
	dispatcher.Start(context.Background())

	scheduler, err := jobs.StartScheduler(cfg.SweepSchedule, jobs.NewSweeper(db.DB, dispatcher, cfg.StalledRunAfter))
	if err != nil {
		zap.L().Fatal("failed to start sweep scheduler", zap.Error(err))
	}

	intakeLimiter := middleware.NewIntakeRateLimiter(cfg.IntakeRateLimit)
	defer intakeLimiter.Stop()

	caseHandler := &handlers.CaseHandler{
		DB:     db.DB,
		Intake: services.NewCaseIntake(db.DB, services.NewExtractor(runner), dispatcher),
		Queue:  dispatcher,
		Guides: stores.Destination,
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit("2M"))

	// Public routes
	e.GET("/health", handlers.HealthHandler(db.DB))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Service routes
	api := e.Group("/api", middleware.RequireServiceToken(cfg.ServiceToken))
	{
		api.POST("/cases/manual", caseHandler.CreateManualCase, intakeLimiter.Middleware())
		api.POST("/cases/process", caseHandler.ProcessCase)
		api.GET("/cases/:id", caseHandler.GetCase)
	}

	// Start server
	go func() {
		zap.L().Info("server starting", zap.String("port", cfg.ServerPort), zap.String("environment", cfg.Environment))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	// Unfinished runs are picked up by the sweep after restart
	if err := dispatcher.Shutdown(ctx); err != nil {
		zap.L().Warn("processing workers did not finish in time", zap.Error(err))
	}
}
