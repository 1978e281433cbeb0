// Package scheduler arms cron timers for enabled tasks and hands expirations
// to the task manager.
//
// The cron library has no entry removal, so Refresh builds a fresh runner
// from the current task table and swaps it in. Call Refresh after any task
// create, update or delete.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron"

	"github.com/desertthunder/skysync/internal/shared"
	"github.com/desertthunder/skysync/internal/tasks"
)

// Scheduler drives scheduled task runs.
type Scheduler struct {
	manager *tasks.Manager
	logger  *log.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a Scheduler. Nothing is armed until Start or Refresh; task
// writes made through the manager after Start re-arm the timers automatically.
func New(manager *tasks.Manager, logger *log.Logger) *Scheduler {
	s := &Scheduler{manager: manager, logger: logger}
	manager.OnTaskChange(func() {
		s.mu.Lock()
		started := s.cron != nil
		s.mu.Unlock()
		if !started {
			return
		}
		if err := s.Refresh(); err != nil {
			logger.Error("failed to refresh schedule after task change", "error", err)
		}
	})
	return s
}

// Start arms timers for every enabled task.
func (s *Scheduler) Start() error {
	return s.Refresh()
}

// Refresh rebuilds the timer set from the current enabled tasks. Runs already
// in flight are unaffected; the single-flight lock lives below the scheduler.
func (s *Scheduler) Refresh() error {
	enabled, err := s.manager.ListTasks(map[string]any{"enabled": true})
	if err != nil {
		return err
	}

	c := cron.New()
	for _, task := range enabled {
		id := task.ID()
		// v1 cron specs carry a leading seconds field
		spec := "0 " + task.Schedule().String()
		if err := c.AddFunc(spec, func() { s.runTask(id) }); err != nil {
			s.logger.Error("failed to schedule task", "task", id, "spec", spec, "error", err)
			continue
		}
		s.logger.Debug("task scheduled", "task", id, "schedule", task.Schedule().String())
	}

	s.mu.Lock()
	old := s.cron
	s.cron = c
	c.Start()
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	return nil
}

// Stop halts the timers. In-flight runs finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// Entries reports how many tasks are currently armed.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

func (s *Scheduler) runTask(id string) {
	s.logger.Info("scheduled run starting", "task", id)

	handle, err := s.manager.Run(context.Background(), id, nil)
	if err != nil {
		s.logger.Error("scheduled run not admitted", "task", id, "error", err)
		return
	}

	if err := <-handle.Done; err != nil {
		if errors.Is(err, shared.ErrLockBusy) {
			s.logger.Warn("scheduled run skipped, task already queued", "task", id)
			return
		}
		s.logger.Error("scheduled run failed", "task", id, "run", handle.RunID, "error", err)
		return
	}
	s.logger.Info("scheduled run finished", "task", id, "run", handle.RunID)
}
