package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/repositories"
	"github.com/desertthunder/skysync/internal/shared"
	"github.com/desertthunder/skysync/internal/tasks"
	skytest "github.com/desertthunder/skysync/internal/testing"
)

// setupRunner builds a Runner over an in-memory database with the rclone
// layer mocked out, so command actions exercise the real manager and
// repositories without spawning subprocesses.
func setupRunner(t *testing.T) (*Runner, *bytes.Buffer, *skytest.MockExecutor) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	registry := providers.DefaultRegistry()
	executor := &skytest.MockExecutor{}
	logger := shared.NewLogger(&bytes.Buffer{})

	manager := tasks.NewManager(
		repositories.NewCredentialRepository(db),
		repositories.NewTaskRepository(db, skytest.PlainSecrets{}),
		repositories.NewRunRepository(db),
		registry,
		executor,
		logger,
	)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Registry: registry,
		Manager:  manager,
		Logger:   logger,
		Output:   output,
	})
	return runner, output, executor
}

// run executes the CLI with the given arguments against the runner's
// registered commands.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "skysync",
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"skysync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.registry == nil {
				t.Error("expected default registry to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Config: config, Output: output})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &skytest.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestParseAttrs(t *testing.T) {
	t.Run("coerces value types", func(t *testing.T) {
		attrs, err := parseAttrs([]string{"host=sftp.example.com", "port=2022", "readonly=true"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if attrs["host"] != "sftp.example.com" {
			t.Errorf("host = %v", attrs["host"])
		}
		if attrs["port"] != 2022 {
			t.Errorf("port = %v (%T), want int", attrs["port"], attrs["port"])
		}
		if attrs["readonly"] != true {
			t.Errorf("readonly = %v", attrs["readonly"])
		}
	})

	t.Run("rejects malformed pairs", func(t *testing.T) {
		if _, err := parseAttrs([]string{"no-equals"}); err == nil {
			t.Error("expected error for pair without =")
		}
		if _, err := parseAttrs([]string{"=value"}); err == nil {
			t.Error("expected error for empty key")
		}
	})
}

func TestCredentialCommands(t *testing.T) {
	runner, output, _ := setupRunner(t)

	err := run(t, runner, "credentials", "create",
		"--name", "personal s3", "--provider", "s3",
		"--attr", "access_key_id=AKIATEST",
		"--attr", "secret_access_key=shhh")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(output.String(), "Credential created") {
		t.Errorf("unexpected create output: %s", output.String())
	}

	output.Reset()
	if err := run(t, runner, "credentials", "list", "--json"); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var views []map[string]any
	if err := json.Unmarshal(output.Bytes(), &views); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, output.String())
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(views))
	}
	if views[0]["name"] != "personal s3" {
		t.Errorf("name = %v", views[0]["name"])
	}

	attrs, ok := views[0]["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes missing from view: %v", views[0])
	}
	if attrs["secret_access_key"] != "********" {
		t.Errorf("secret attribute not redacted: %v", attrs["secret_access_key"])
	}
	if attrs["access_key_id"] != "AKIATEST" {
		t.Errorf("plain attribute altered: %v", attrs["access_key_id"])
	}

	t.Run("rejects unknown provider", func(t *testing.T) {
		err := run(t, runner, "credentials", "create", "--name", "x", "--provider", "nope")
		if err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestTaskCommands(t *testing.T) {
	runner, output, executor := setupRunner(t)

	if err := run(t, runner, "credentials", "create",
		"--name", "personal s3", "--provider", "s3",
		"--attr", "access_key_id=AKIATEST",
		"--attr", "secret_access_key=shhh",
		"--json"); err != nil {
		t.Fatalf("create credential failed: %v", err)
	}

	var credView map[string]any
	if err := json.Unmarshal(output.Bytes(), &credView); err != nil {
		t.Fatalf("credential output is not JSON: %v", err)
	}
	credID := credView["id"].(string)

	path := t.TempDir()
	output.Reset()
	err := run(t, runner, "tasks", "create",
		"--description", "nightly photos",
		"--direction", "push", "--mode", "sync",
		"--path", path, "--credential", credID,
		"--bucket", "backups", "--folder", "photos",
		"--schedule", "30 2 * * *",
		"--json")
	if err != nil {
		t.Fatalf("create task failed: %v", err)
	}

	var created map[string]any
	if err := json.Unmarshal(output.Bytes(), &created); err != nil {
		t.Fatalf("task output is not JSON: %v\n%s", err, output.String())
	}
	if created["schedule"] != "30 2 * * *" {
		t.Errorf("schedule = %v", created["schedule"])
	}
	taskID := created["id"].(string)

	t.Run("run records history", func(t *testing.T) {
		output.Reset()
		if err := run(t, runner, "tasks", "run", "--id", taskID); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(executor.RunCalls) != 1 || executor.RunCalls[0] != taskID {
			t.Errorf("executor calls = %v", executor.RunCalls)
		}
		if !strings.Contains(output.String(), "Run finished") {
			t.Errorf("unexpected run output: %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "tasks", "runs", "--id", taskID, "--json"); err != nil {
			t.Fatalf("runs failed: %v", err)
		}
		var runs []map[string]any
		if err := json.Unmarshal(output.Bytes(), &runs); err != nil {
			t.Fatalf("runs output is not JSON: %v", err)
		}
		if len(runs) != 1 || runs[0]["status"] != "SUCCESS" {
			t.Errorf("runs = %v", runs)
		}
	})

	t.Run("rejects invalid direction", func(t *testing.T) {
		err := run(t, runner, "tasks", "create",
			"--description", "bad",
			"--direction", "sideways", "--mode", "sync",
			"--path", path, "--credential", credID,
			"--bucket", "backups")
		if err == nil {
			t.Error("expected error for invalid direction")
		}
	})

	t.Run("delete blocks credential removal first", func(t *testing.T) {
		if err := run(t, runner, "credentials", "delete", "--id", credID); err == nil {
			t.Error("expected delete to fail while a task references the credential")
		}
		if err := run(t, runner, "tasks", "delete", "--id", taskID); err != nil {
			t.Fatalf("task delete failed: %v", err)
		}
		if err := run(t, runner, "credentials", "delete", "--id", credID); err != nil {
			t.Fatalf("credential delete failed: %v", err)
		}
	})
}

func TestProvidersCommand(t *testing.T) {
	runner, output, _ := setupRunner(t)

	if err := run(t, runner, "providers", "--json"); err != nil {
		t.Fatalf("providers failed: %v", err)
	}

	var descriptors []providers.Descriptor
	if err := json.Unmarshal(output.Bytes(), &descriptors); err != nil {
		t.Fatalf("providers output is not JSON: %v", err)
	}
	if len(descriptors) != 9 {
		t.Errorf("expected 9 providers, got %d", len(descriptors))
	}

	output.Reset()
	if err := run(t, runner, "providers", "schema", "--name", "sftp"); err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if !strings.Contains(output.String(), "host") {
		t.Errorf("schema output missing host field:\n%s", output.String())
	}

	if err := run(t, runner, "providers", "schema", "--name", "nope"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
