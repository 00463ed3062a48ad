// Package main provides the CodeGenius API server implementation.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/codegenius/codegenius/pkg/orchestrator"
	"github.com/codegenius/codegenius/pkg/persistence"
	"github.com/codegenius/codegenius/pkg/registry"
	"github.com/codegenius/codegenius/pkg/services"
	"github.com/codegenius/codegenius/pkg/web"
)

const shutdownGrace = 30 * time.Second

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	orchestrator *orchestrator.Orchestrator,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		registry:     registry,
		orchestrator: orchestrator,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	analysisService := services.NewAnalysis(a.orchestrator, a.persistence)
	statusService := services.NewStatus(a.persistence)

	handlers := web.NewAPIHandlers(analysisService, statusService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("CodeGenius API")
	})

	api := app.Group("/api")
	api.Post("/analyses", handlers.SubmitAnalysis)
	api.Get("/workflows", handlers.GetWorkflows)
	api.Get("/workflows/:id", handlers.GetWorkflow)
	api.Get("/workflows/:id/status", handlers.GetWorkflowStatus)
	api.Get("/workflows/:id/result", handlers.GetWorkflowResult)
	api.Get("/workflows/:id/download", handlers.DownloadDocument)
	api.Post("/workflows/:id/cancel", handlers.CancelWorkflow)
	api.Delete("/workflows/:id", handlers.DeleteWorkflow)
	api.Get("/config", handlers.GetConfig)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// Start serves the API until SIGINT or SIGTERM, then drains the orchestrator
// before stopping the listener.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go a.handleSignals(ctx, app)

	return app.Listen(":" + strconv.Itoa(port))
}

func (a *API) handleSignals(ctx context.Context, app *fiber.App) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signals
	a.logger.InfoContext(ctx, "Received signal, shutting down gracefully...", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := a.orchestrator.Shutdown(shutdownCtx); err != nil {
		a.logger.ErrorContext(ctx, "Orchestrator shutdown incomplete", "error", err)
	}

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.ErrorContext(ctx, "Server shutdown failed", "error", err)
	}
}
