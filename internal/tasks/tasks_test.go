package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/rclone"
	"github.com/desertthunder/skysync/internal/repositories"
	"github.com/desertthunder/skysync/internal/shared"
	skytest "github.com/desertthunder/skysync/internal/testing"
)

func setupManager(t *testing.T) (*Manager, *skytest.MockExecutor, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	exec := &skytest.MockExecutor{}
	manager := NewManager(
		repositories.NewCredentialRepository(db),
		repositories.NewTaskRepository(db, skytest.PlainSecrets{}),
		repositories.NewRunRepository(db),
		providers.DefaultRegistry(),
		exec,
		shared.NewLogger(io.Discard),
	)
	return manager, exec, db
}

func s3Credential(t *testing.T, m *Manager) *models.Credential {
	t.Helper()
	cred, err := m.CreateCredential("personal s3", "s3", map[string]any{
		"access_key_id":     "AKIA",
		"secret_access_key": "sekrit",
	})
	if err != nil {
		t.Fatalf("failed to create credential: %v", err)
	}
	return cred
}

func pushTask(t *testing.T, credID string) *models.SyncTask {
	t.Helper()
	task := models.NewSyncTask(0, "nightly push", models.DirectionPush, models.ModeSync, t.TempDir(), credID)
	task.SetAttributes(map[string]any{"bucket": "backups", "folder": "photos"})
	return task
}

func TestManagerCredentials(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred := s3Credential(t, m)
		if cred.ID() == "" {
			t.Error("credential ID should be set")
		}
	})

	t.Run("CreateUnknownProvider", func(t *testing.T) {
		m, _, _ := setupManager(t)
		_, err := m.CreateCredential("bad", "nonesuch", nil)
		if !errors.Is(err, shared.ErrProviderUnknown) {
			t.Errorf("error = %v, want ErrProviderUnknown", err)
		}
	})

	t.Run("CreateMissingRequiredAttribute", func(t *testing.T) {
		m, _, _ := setupManager(t)
		_, err := m.CreateCredential("partial", "s3", map[string]any{"access_key_id": "AKIA"})
		if err == nil || !strings.Contains(err.Error(), "secret_access_key") {
			t.Errorf("error = %v, want secret_access_key failure", err)
		}
	})

	t.Run("CreateUnknownAttribute", func(t *testing.T) {
		m, _, _ := setupManager(t)
		_, err := m.CreateCredential("typo", "s3", map[string]any{
			"access_key_id":     "AKIA",
			"secret_access_key": "sekrit",
			"acess_key":         "oops",
		})
		if err == nil || !strings.Contains(err.Error(), "unknown attribute") {
			t.Errorf("error = %v, want unknown attribute failure", err)
		}
	})

	t.Run("DeleteBlockedByTask", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred := s3Credential(t, m)

		if err := m.CreateTask(context.Background(), pushTask(t, cred.ID())); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		if err := m.DeleteCredential(cred.ID()); err == nil {
			t.Error("expected delete to be refused while a task references the credential")
		}
	})

	t.Run("Verify", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)

		if err := m.VerifyCredential(context.Background(), cred.ID()); err != nil {
			t.Fatalf("verify: %v", err)
		}
		if len(exec.ListCalls) != 1 || exec.ListCalls[0] != "" {
			t.Errorf("verify should list the backend root, got %v", exec.ListCalls)
		}

		exec.ListFunc = func(context.Context, *models.SyncTask, string) ([]models.RemoteEntry, error) {
			return nil, fmt.Errorf("%w: 403 forbidden", shared.ErrRcloneFailed)
		}
		if err := m.VerifyCredential(context.Background(), cred.ID()); err == nil {
			t.Error("expected verify to fail when listing fails")
		}
	})
}

func TestManagerTaskValidation(t *testing.T) {
	t.Run("PushHappyPath", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)

		task := pushTask(t, cred.ID())
		if err := m.CreateTask(context.Background(), task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		if task.ID() == "" {
			t.Error("task ID should be set")
		}
		if len(exec.ListCalls) != 0 {
			t.Errorf("push tasks must not trigger the remote pre-flight, got %v", exec.ListCalls)
		}
	})

	t.Run("PullFolderPreflight", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)

		exec.ListFunc = func(_ context.Context, _ *models.SyncTask, path string) ([]models.RemoteEntry, error) {
			return []models.RemoteEntry{
				{Name: "photos", IsDir: true},
				{Name: "notes.txt", IsDir: false},
			}, nil
		}

		task := models.NewSyncTask(0, "restore", models.DirectionPull, models.ModeCopy, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{"bucket": "backups", "folder": "archive/photos"})
		if err := m.CreateTask(context.Background(), task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}

		if len(exec.ListCalls) != 1 || exec.ListCalls[0] != "backups/archive" {
			t.Errorf("pre-flight listed %v, want [backups/archive]", exec.ListCalls)
		}
	})

	t.Run("PullFolderMissing", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)

		exec.ListFunc = func(context.Context, *models.SyncTask, string) ([]models.RemoteEntry, error) {
			return []models.RemoteEntry{{Name: "other", IsDir: true}}, nil
		}

		task := models.NewSyncTask(0, "restore", models.DirectionPull, models.ModeCopy, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{"bucket": "backups", "folder": "photos"})
		err := m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "directory does not exist") {
			t.Errorf("error = %v, want missing directory failure", err)
		}
	})

	t.Run("PullFolderIsFile", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)

		exec.ListFunc = func(context.Context, *models.SyncTask, string) ([]models.RemoteEntry, error) {
			return []models.RemoteEntry{{Name: "photos", IsDir: false}}, nil
		}

		task := models.NewSyncTask(0, "restore", models.DirectionPull, models.ModeCopy, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{"bucket": "backups", "folder": "photos"})
		err := m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "not a directory") {
			t.Errorf("error = %v, want not-a-directory failure", err)
		}
	})

	t.Run("PushToReadOnlyProvider", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred, err := m.CreateCredential("mirror", "http", map[string]any{"url": "https://example.com"})
		if err != nil {
			t.Fatal(err)
		}

		task := models.NewSyncTask(0, "bad push", models.DirectionPush, models.ModeSync, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{})
		err = m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "read-only") {
			t.Errorf("error = %v, want read-only failure", err)
		}
	})

	t.Run("EncryptionRequiresPassword", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred := s3Credential(t, m)

		task := pushTask(t, cred.ID())
		task.SetEncryption(true)
		err := m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "encryption_password") {
			t.Errorf("error = %v, want encryption_password failure", err)
		}
	})

	t.Run("MissingBucket", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred := s3Credential(t, m)

		task := models.NewSyncTask(0, "no bucket", models.DirectionPush, models.ModeSync, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{"folder": "photos"})
		err := m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "bucket") {
			t.Errorf("error = %v, want bucket failure", err)
		}
	})

	t.Run("RelativePath", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred := s3Credential(t, m)

		task := models.NewSyncTask(0, "rel", models.DirectionPush, models.ModeSync, "relative/path", cred.ID())
		task.SetAttributes(map[string]any{"bucket": "backups"})
		err := m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "absolute") {
			t.Errorf("error = %v, want absolute path failure", err)
		}
	})

	t.Run("AdditionalTaskAttributes", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred := s3Credential(t, m)

		// extra backend keys beyond the schema pass through to rclone
		task := pushTask(t, cred.ID())
		task.SetAttribute("server_side_encryption", "aws:kms")
		if err := m.CreateTask(context.Background(), task); err != nil {
			t.Fatalf("task with additional provider-defined attributes rejected: %v", err)
		}
	})

	t.Run("HookErrorsAccumulateWithOthers", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred, err := m.CreateCredential("nas", "sftp", map[string]any{
			"host": "nas.local",
			"user": "backup",
			"pass": "hunter2",
		})
		if err != nil {
			t.Fatal(err)
		}

		// a failure outside the attribute schema must not suppress the
		// provider hook; both errors come back in one round trip
		task := models.NewSyncTask(0, "both wrong", models.DirectionPush, models.ModeSync, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{"folder": "~/documents"})
		task.SetEncryption(true)
		err = m.CreateTask(context.Background(), task)
		if err == nil {
			t.Fatal("expected validation failure")
		}
		if !strings.Contains(err.Error(), "encryption_password") {
			t.Errorf("error = %v, want encryption_password failure included", err)
		}
		if !strings.Contains(err.Error(), "~") {
			t.Errorf("error = %v, want tilde folder rejection included", err)
		}
	})

	t.Run("ProviderPreSaveHook", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred, err := m.CreateCredential("nas", "sftp", map[string]any{
			"host": "nas.local",
			"user": "backup",
			"pass": "hunter2",
		})
		if err != nil {
			t.Fatal(err)
		}

		task := models.NewSyncTask(0, "home pull", models.DirectionPush, models.ModeSync, t.TempDir(), cred.ID())
		task.SetAttributes(map[string]any{"folder": "~/documents"})
		err = m.CreateTask(context.Background(), task)
		if err == nil || !strings.Contains(err.Error(), "~") {
			t.Errorf("error = %v, want tilde folder rejection", err)
		}
	})
}

func TestManagerRun(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)
		task := pushTask(t, cred.ID())
		if err := m.CreateTask(context.Background(), task); err != nil {
			t.Fatal(err)
		}

		exec.RunFunc = func(_ context.Context, job rclone.Job, _ *models.SyncTask) error {
			fmt.Fprintln(job.Log(), "INFO  : transfer complete")
			job.SetProgress(nil, "10 MiB / 10 MiB, 100%")
			return nil
		}

		handle, err := m.Run(context.Background(), task.ID(), nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if err := <-handle.Done; err != nil {
			t.Fatalf("run outcome: %v", err)
		}

		runs, err := m.ListRuns(map[string]any{"task_id": task.ID()})
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(runs))
		}
		if runs[0].ID() != handle.RunID {
			t.Errorf("history run ID %s, handle run ID %s", runs[0].ID(), handle.RunID)
		}
		if runs[0].Status() != models.RunSuccess {
			t.Errorf("status = %s, want SUCCESS", runs[0].Status())
		}
		if runs[0].FinishedAt() == nil {
			t.Error("finished_at should be set")
		}
		if got := handle.Job.Progress().Message; got != "10 MiB / 10 MiB, 100%" {
			t.Errorf("last progress = %q", got)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)
		task := pushTask(t, cred.ID())
		if err := m.CreateTask(context.Background(), task); err != nil {
			t.Fatal(err)
		}

		exec.RunFunc = func(context.Context, rclone.Job, *models.SyncTask) error {
			return fmt.Errorf("%w: exit status 3", shared.ErrRcloneFailed)
		}

		handle, err := m.Run(context.Background(), task.ID(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := <-handle.Done; !errors.Is(err, shared.ErrRcloneFailed) {
			t.Fatalf("run outcome = %v, want ErrRcloneFailed", err)
		}

		runs, err := m.ListRuns(map[string]any{"task_id": task.ID()})
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].Status() != models.RunFailed {
			t.Fatalf("run not recorded as FAILED: %+v", runs)
		}
		if !strings.Contains(runs[0].ErrorMessage(), "exit status 3") {
			t.Errorf("error message = %q", runs[0].ErrorMessage())
		}
	})

	t.Run("UnknownTask", func(t *testing.T) {
		m, _, _ := setupManager(t)
		if _, err := m.Run(context.Background(), "nonesuch", nil); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("error = %v, want ErrTaskNotFound", err)
		}
	})
}

func TestManagerListing(t *testing.T) {
	t.Run("ListDirectoryDefaultsToTaskLocation", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)
		task := pushTask(t, cred.ID())
		if err := m.CreateTask(context.Background(), task); err != nil {
			t.Fatal(err)
		}

		if _, err := m.ListDirectory(context.Background(), task.ID(), ""); err != nil {
			t.Fatal(err)
		}
		if got := exec.ListCalls[len(exec.ListCalls)-1]; got != "backups/photos" {
			t.Errorf("listed %q, want backups/photos", got)
		}

		if _, err := m.ListDirectory(context.Background(), task.ID(), "backups/other"); err != nil {
			t.Fatal(err)
		}
		if got := exec.ListCalls[len(exec.ListCalls)-1]; got != "backups/other" {
			t.Errorf("listed %q, want backups/other", got)
		}
	})

	t.Run("ListBuckets", func(t *testing.T) {
		m, exec, _ := setupManager(t)
		cred := s3Credential(t, m)

		exec.ListFunc = func(context.Context, *models.SyncTask, string) ([]models.RemoteEntry, error) {
			return []models.RemoteEntry{
				{Name: "backups", IsDir: true},
				{Name: "stray-object", IsDir: false},
				{Name: "media", IsDir: true},
			}, nil
		}

		buckets, err := m.ListBuckets(context.Background(), cred.ID())
		if err != nil {
			t.Fatal(err)
		}
		if len(buckets) != 2 {
			t.Fatalf("got %d buckets, want 2", len(buckets))
		}
		for _, b := range buckets {
			if !b.IsDir {
				t.Errorf("non-directory entry in bucket list: %+v", b)
			}
		}
	})

	t.Run("ListBucketsOnBucketlessProvider", func(t *testing.T) {
		m, _, _ := setupManager(t)
		cred, err := m.CreateCredential("office ftp", "ftp", map[string]any{
			"host": "ftp.example.com",
			"user": "u",
			"pass": "p",
		})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := m.ListBuckets(context.Background(), cred.ID()); !errors.Is(err, shared.ErrNoBuckets) {
			t.Errorf("error = %v, want ErrNoBuckets", err)
		}
	})
}

func TestManagerProviders(t *testing.T) {
	m, _, _ := setupManager(t)
	descriptors := m.Providers()
	if len(descriptors) != 9 {
		t.Fatalf("got %d providers, want 9", len(descriptors))
	}
	for i := 1; i < len(descriptors); i++ {
		if strings.ToLower(descriptors[i-1].Title) > strings.ToLower(descriptors[i].Title) {
			t.Errorf("providers not sorted by title: %s before %s", descriptors[i-1].Title, descriptors[i].Title)
		}
	}
}
