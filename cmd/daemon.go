package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/skysync/internal/scheduler"
)

// Daemon arms cron timers for every enabled task and runs until interrupted.
// The task table is re-read on an interval so edits made while the daemon is
// up take effect without a restart.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	if !r.config.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled in configuration")
	}
	if err := r.bootstrap(); err != nil {
		return err
	}

	sched := scheduler.New(r.manager, r.logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	r.logger.Info("scheduler started", "tasks", sched.Entries())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := time.NewTicker(cmd.Duration("refresh"))
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down scheduler")
			return nil
		case <-refresh.C:
			if err := sched.Refresh(); err != nil {
				r.logger.Error("failed to refresh schedule", "error", err)
			}
		}
	}
}

func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run scheduled tasks until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "refresh",
				Usage: "How often to re-read the task table",
				Value: time.Minute,
			},
		},
		Action: r.Daemon,
	}
}
