package rclone

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/skysync/internal/jobs"
	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/shared"
)

// fakeRclone writes an executable shell script standing in for the real
// binary and returns an Executor configured to invoke it.
func fakeRclone(t *testing.T, script string) *Executor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rclone")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	conf := shared.RcloneConfig{Binary: path, StatsInterval: "1s"}
	return NewExecutor(conf, providers.DefaultRegistry(), shared.NewLogger(io.Discard))
}

func executorTask(t *testing.T) *models.SyncTask {
	t.Helper()
	return testTask(t, "s3",
		map[string]any{"access_key_id": "AKIA", "secret_access_key": "sekrit"},
		map[string]any{"bucket": "backups", "folder": ""},
	)
}

func TestExecutorRunSuccess(t *testing.T) {
	exec := fakeRclone(t, strings.Join([]string{
		`echo "INFO  : starting transfer"`,
		`echo "Transferred:   	   1.2 MiB / 10 MiB, 12%, 204 KiB/s, ETA 43s"`,
		`echo "Transferred: 5"`,
		`echo "INFO  : done"`,
	}, "\n"))

	task := executorTask(t)
	job := jobs.New(task.ID(), nil)

	if err := exec.Run(context.Background(), job, task); err != nil {
		t.Fatalf("Run: %v", err)
	}
	job.Close()

	out := job.Output()
	if !strings.Contains(out, "starting transfer") || !strings.Contains(out, "done") {
		t.Errorf("job log missing tool output:\n%s", out)
	}

	var messages []string
	for u := range job.Updates() {
		messages = append(messages, u.Message)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d progress updates, want 1: %v", len(messages), messages)
	}
	if want := "1.2 MiB / 10 MiB, 12%, 204 KiB/s, ETA 43s"; messages[0] != want {
		t.Errorf("progress message = %q, want %q", messages[0], want)
	}
}

func TestExecutorRunFailure(t *testing.T) {
	exec := fakeRclone(t, strings.Join([]string{
		`echo "INFO  : starting"`,
		`echo "ERROR : s3 bucket does not exist" >&2`,
		`exit 3`,
	}, "\n"))

	task := executorTask(t)
	job := jobs.New(task.ID(), nil)
	err := exec.Run(context.Background(), job, task)
	job.Close()

	if !errors.Is(err, shared.ErrRcloneFailed) {
		t.Fatalf("Run error = %v, want ErrRcloneFailed", err)
	}
	if !strings.Contains(err.Error(), "bucket does not exist") {
		t.Errorf("error does not carry tool diagnostics: %v", err)
	}
	if !strings.Contains(job.Output(), "bucket does not exist") {
		t.Errorf("job log missing stderr output:\n%s", job.Output())
	}
}

func TestExecutorRunArguments(t *testing.T) {
	// the fake echoes its invocation so the test can assert the command line
	exec := fakeRclone(t, `echo "argv: $@"`)

	task := executorTask(t)
	task.SetTransferMode(models.ModeCopy)
	task.SetDirection(models.DirectionPull)

	job := jobs.New(task.ID(), nil)
	if err := exec.Run(context.Background(), job, task); err != nil {
		t.Fatal(err)
	}
	job.Close()

	out := job.Output()
	for _, want := range []string{"--config", "-v --stats 1s copy", "remote:backups /tmp/src"} {
		if !strings.Contains(out, want) {
			t.Errorf("command line missing %q: %s", want, out)
		}
	}
}

func TestExecutorRunLockBusy(t *testing.T) {
	dir := t.TempDir()
	gate := filepath.Join(dir, "gate")
	exec := fakeRclone(t, `while [ ! -f `+gate+` ]; do sleep 0.05; done`)

	task := executorTask(t)

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			job := jobs.New(task.ID(), nil)
			defer job.Close()
			errs <- exec.Run(context.Background(), job, task)
		}()
	}
	time.Sleep(200 * time.Millisecond)

	// first run in flight, second queued: a third must be turned away
	job := jobs.New(task.ID(), nil)
	defer job.Close()
	if err := exec.Run(context.Background(), job, task); !errors.Is(err, shared.ErrLockBusy) {
		t.Errorf("third Run error = %v, want ErrLockBusy", err)
	}

	if err := os.WriteFile(gate, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := <-errs; err != nil {
			t.Errorf("Run: %v", err)
		}
	}
}

func TestExecutorRunRemovesConfig(t *testing.T) {
	// the fake records the --config path so the test can check it afterwards
	record := filepath.Join(t.TempDir(), "confpath")
	t.Setenv("SKYSYNC_TEST_RECORD", record)
	exec := fakeRclone(t, `echo "$2" > "$SKYSYNC_TEST_RECORD"; echo ok`)

	task := executorTask(t)
	job := jobs.New(task.ID(), nil)
	defer job.Close()
	if err := exec.Run(context.Background(), job, task); err != nil {
		t.Fatal(err)
	}

	recorded, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	confPath := strings.TrimSpace(string(recorded))
	if confPath == "" {
		t.Fatal("fake tool did not record a config path")
	}
	if _, err := os.Stat(confPath); !os.IsNotExist(err) {
		t.Errorf("config file %s still exists after the run", confPath)
	}
}

func TestExecutorList(t *testing.T) {
	exec := fakeRclone(t, `cat <<'EOF'
[
  {"Path": "photos", "Name": "photos", "Size": -1, "MimeType": "inode/directory", "ModTime": "2026-08-20T10:00:00Z", "IsDir": true},
  {"Path": "notes.txt", "Name": "notes.txt", "Size": 421, "MimeType": "text/plain", "ModTime": "2026-08-21T08:30:00Z", "IsDir": false}
]
EOF`)

	task := executorTask(t)
	entries, err := exec.List(context.Background(), task, "backups")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !entries[0].IsDir || entries[0].Name != "photos" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Size != 421 {
		t.Errorf("entry 1 size = %d", entries[1].Size)
	}
}

func TestExecutorListFailure(t *testing.T) {
	exec := fakeRclone(t, `echo "ERROR : directory not found" >&2; exit 3`)

	task := executorTask(t)
	_, err := exec.List(context.Background(), task, "backups/missing")
	if !errors.Is(err, shared.ErrRcloneFailed) {
		t.Fatalf("List error = %v, want ErrRcloneFailed", err)
	}
	if !strings.Contains(err.Error(), "directory not found") {
		t.Errorf("error does not carry stderr: %v", err)
	}
}
