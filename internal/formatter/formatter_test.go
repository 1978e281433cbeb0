package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
)

func TestFormatSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{-1, "-"},
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := FormatSize(tc.size); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

func TestFormatRunDuration(t *testing.T) {
	run := models.NewRunRecord(1, "task-1")
	if got := FormatRunDuration(run); got != "-" {
		t.Errorf("in-flight duration = %q, want -", got)
	}

	started := time.Now().Add(-90 * time.Second)
	run.SetStartedAt(started)
	finished := started.Add(90 * time.Second)
	run.SetFinishedAt(&finished)
	if got := FormatRunDuration(run); got != "1m30s" {
		t.Errorf("duration = %q, want 1m30s", got)
	}
}

func TestListingTable(t *testing.T) {
	out := ListingTable([]models.RemoteEntry{
		{Name: "photos", IsDir: true, ModTime: "2026-08-20T10:00:00Z"},
		{Name: "notes.txt", Size: 421, ModTime: "2026-08-21T08:30:00Z"},
	})

	for _, want := range []string{"photos", "dir", "notes.txt", "421 B"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing output missing %q:\n%s", want, out)
		}
	}
}

func TestTasksTable(t *testing.T) {
	cred := models.NewCredential(1, "personal s3", "s3", nil)
	task := models.NewSyncTask(3, "nightly photos", models.DirectionPush, models.ModeSync, "/mnt/photos", "cred-id")
	task.SetCredential(cred)
	task.SetAttributes(map[string]any{"bucket": "backups", "folder": "photos"})

	out := TasksTable([]*models.SyncTask{task})
	for _, want := range []string{"nightly photos", "PUSH", "SYNC", "/mnt/photos", "personal s3:backups/photos", "0 0 * * *"} {
		if !strings.Contains(out, want) {
			t.Errorf("task output missing %q:\n%s", want, out)
		}
	}
}

func TestProvidersTable(t *testing.T) {
	registry := providers.DefaultRegistry()
	var descriptors []providers.Descriptor
	for _, p := range registry.All() {
		descriptors = append(descriptors, providers.Describe(p))
	}

	out := ProvidersTable(descriptors)
	for _, want := range []string{"Amazon S3", "SFTP", "HTTP"} {
		if !strings.Contains(out, want) {
			t.Errorf("providers output missing %q:\n%s", want, out)
		}
	}
}

func TestToJSON(t *testing.T) {
	data, err := ToJSON(map[string]any{"name": "test"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["name"] != "test" {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("JSON output should end with a newline")
	}
}
