package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codegenius/codegenius/pkg/persistence"
)

// Janitor removes terminal workflows that outlived the retention window.
// Live workflows are never touched: the store only lists terminal records as
// expired and refuses to delete anything still pending or running.
type Janitor struct {
	id          string
	persistence persistence.Persistence
	logger      *slog.Logger
	schedule    string
	retention   time.Duration
	cron        *cron.Cron
}

// NewJanitor creates a new Janitor instance.
func NewJanitor(
	id string,
	persistence persistence.Persistence,
	logger *slog.Logger,
	schedule string,
	retention time.Duration,
) *Janitor {
	return &Janitor{
		id:          id,
		persistence: persistence,
		logger:      logger.With("module", "janitor"),
		schedule:    schedule,
		retention:   retention,
	}
}

// Start runs sweeps on the configured schedule until the context is
// cancelled or a shutdown signal arrives.
func (j *Janitor) Start(ctx context.Context) error {
	jCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	j.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Sweep(jCtx); err != nil {
			j.logger.ErrorContext(jCtx, "Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", j.schedule, err)
	}

	j.logger.InfoContext(jCtx, "Starting janitor", "schedule", j.schedule, "retention", j.retention)
	j.cron.Start()

	j.handleSignals(jCtx, cancel)

	<-jCtx.Done()
	j.stop()

	return nil
}

// handleSignals sets up signal handling for graceful shutdown.
func (j *Janitor) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		j.logger.InfoContext(ctx, "Received signal", "signal", sig)
		cancel()
	}()
}

// Sweep deletes every terminal workflow older than the retention window and
// reports how many records it removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-j.retention)

	expired, err := j.persistence.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired workflows: %w", err)
	}

	if len(expired) == 0 {
		j.logger.InfoContext(ctx, "No expired workflows to remove", "cutoff", cutoff)

		return 0, nil
	}

	deleted := 0

	for _, workflow := range expired {
		if err := j.persistence.DeleteWorkflow(ctx, workflow.ID); err != nil {
			// Another sweeper may have removed it first.
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			j.logger.ErrorContext(ctx, "Failed to delete expired workflow",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		deleted++

		j.logger.InfoContext(ctx, "Removed expired workflow",
			"workflow_id", workflow.ID, "status", workflow.Status, "updated_at", workflow.UpdatedAt)
	}

	j.logger.InfoContext(ctx, "Sweep finished", "expired", len(expired), "deleted", deleted)

	return deleted, nil
}

// stop gracefully shuts down the janitor, waiting for a running sweep.
func (j *Janitor) stop() {
	j.logger.Info("Stopping janitor")

	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}
