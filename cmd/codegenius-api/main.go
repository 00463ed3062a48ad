package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/codegenius/codegenius/pkg/cmd"
	"github.com/codegenius/codegenius/pkg/log"
	"github.com/codegenius/codegenius/pkg/orchestrator"
	"github.com/codegenius/codegenius/pkg/otelhelper"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "codegenius-api",
		Usage:                 "Submit and track repository analysis workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing capability plugins",
				Value:    "",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent",
				Usage:   "Maximum number of workflows analyzed at the same time",
				Value:   orchestrator.DefaultMaxConcurrent,
				Sources: cli.EnvVars("MAX_CONCURRENT"),
			},
			&cli.DurationFlag{
				Name:    "phase-timeout",
				Usage:   "Time limit for a single analysis phase (0 disables)",
				Value:   10 * time.Minute,
				Sources: cli.EnvVars("PHASE_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "workflow-timeout",
				Usage:   "Time limit for a whole workflow (0 disables)",
				Value:   0,
				Sources: cli.EnvVars("WORKFLOW_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger.InfoContext(ctx, "Initializing CodeGenius API")

			tracerProvider, err := otelhelper.InitTracer(ctx, "codegenius-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			orch := orchestrator.NewOrchestrator(orchestrator.Config{
				MaxConcurrent:   command.Int("max-concurrent"),
				PhaseTimeout:    command.Duration("phase-timeout"),
				WorkflowTimeout: command.Duration("workflow-timeout"),
			}, persistence, registry, eventBus, logger)

			api := NewAPI(
				logger,
				persistence,
				registry,
				orch,
			)

			return api.Start(ctx, command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
