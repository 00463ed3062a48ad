package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/codegenius/codegenius/pkg/cmd"
	"github.com/codegenius/codegenius/pkg/log"
)

const defaultRetention = 7 * 24 * time.Hour

func main() {
	command := &cli.Command{
		Name:                  "codegenius-janitor",
		Usage:                 "Remove finished analysis workflows past their retention window",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "janitor-id",
				Aliases: []string{"id"},
				Usage:   "Custom janitor ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("JANITOR_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for sweep runs",
				Value:   "0 * * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "retention",
				Usage:   "How long terminal workflows are kept before removal",
				Value:   defaultRetention,
				Sources: cli.EnvVars("RETENTION"),
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

			janitorID := command.String("janitor-id")
			if janitorID == "" {
				janitorID = fmt.Sprintf("janitor-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("codegenius-janitor").With("janitor_id", janitorID)

			logger.Info("Initializing CodeGenius Janitor", "janitor_id", janitorID)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			janitor := NewJanitor(
				janitorID,
				persistence,
				logger,
				command.String("schedule"),
				command.Duration("retention"),
			)

			return janitor.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
