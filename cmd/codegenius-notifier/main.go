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

const defaultWebhookTimeout = 30 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "codegenius-notifier",
		Usage:                 "Forward workflow lifecycle events to an external webhook",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "notifier-id",
				Aliases: []string{"id"},
				Usage:   "Custom notifier ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("NOTIFIER_ID"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "webhook-url",
				Usage:    "HTTP endpoint that receives workflow event payloads",
				Required: true,
				Sources:  cli.EnvVars("WEBHOOK_URL"),
			},
			&cli.DurationFlag{
				Name:    "webhook-timeout",
				Usage:   "Timeout for a single webhook delivery",
				Value:   defaultWebhookTimeout,
				Sources: cli.EnvVars("WEBHOOK_TIMEOUT"),
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

			notifierID := command.String("notifier-id")
			if notifierID == "" {
				notifierID = fmt.Sprintf("notifier-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("codegenius-notifier").With("notifier_id", notifierID)

			logger.Info("Initializing CodeGenius Notifier", "notifier_id", notifierID)

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			return NewNotifier(
				notifierID,
				eventBus,
				command.String("webhook-url"),
				command.Duration("webhook-timeout"),
				logger,
			).Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
