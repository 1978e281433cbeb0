package scheduler

import (
	"context"
	"io"
	"testing"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/repositories"
	"github.com/desertthunder/skysync/internal/shared"
	"github.com/desertthunder/skysync/internal/tasks"
	skytest "github.com/desertthunder/skysync/internal/testing"
)

func setupScheduler(t *testing.T) (*Scheduler, *tasks.Manager) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	manager := tasks.NewManager(
		repositories.NewCredentialRepository(db),
		repositories.NewTaskRepository(db, skytest.PlainSecrets{}),
		repositories.NewRunRepository(db),
		providers.DefaultRegistry(),
		&skytest.MockExecutor{},
		shared.NewLogger(io.Discard),
	)
	return New(manager, shared.NewLogger(io.Discard)), manager
}

func createTask(t *testing.T, m *tasks.Manager, description string, enabled bool) *models.SyncTask {
	t.Helper()

	cred, err := m.CreateCredential(description+" creds", "s3", map[string]any{
		"access_key_id":     "AKIA",
		"secret_access_key": "sekrit",
	})
	if err != nil {
		t.Fatal(err)
	}

	task := models.NewSyncTask(0, description, models.DirectionPush, models.ModeSync, t.TempDir(), cred.ID())
	task.SetAttributes(map[string]any{"bucket": "backups"})
	task.SetEnabled(enabled)
	if err := m.CreateTask(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	return task
}

func TestSchedulerRefresh(t *testing.T) {
	s, m := setupScheduler(t)
	defer s.Stop()

	createTask(t, m, "armed", true)
	createTask(t, m, "paused", false)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.Entries(); got != 1 {
		t.Errorf("armed entries = %d, want 1 (disabled tasks must not be scheduled)", got)
	}

	// task writes re-arm the timers through the manager's change hook
	createTask(t, m, "second", true)
	if got := s.Entries(); got != 2 {
		t.Errorf("armed entries after create = %d, want 2", got)
	}

	s.Stop()
	if got := s.Entries(); got != 0 {
		t.Errorf("armed entries after stop = %d, want 0", got)
	}
}
