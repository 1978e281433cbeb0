package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/skysync/internal/formatter"
	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/ui"
)

// CreateTask builds a sync task from flags, validates it (including the
// remote pre-flight) and persists it.
func (r *Runner) CreateTask(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	direction, err := models.ParseDirection(strings.ToUpper(cmd.String("direction")))
	if err != nil {
		return err
	}
	mode, err := models.ParseTransferMode(strings.ToUpper(cmd.String("mode")))
	if err != nil {
		return err
	}

	task := models.NewSyncTask(0, cmd.String("description"), direction, mode, cmd.String("path"), cmd.String("credential"))

	if expr := cmd.String("schedule"); expr != "" {
		schedule, err := models.ParseSchedule(expr)
		if err != nil {
			return err
		}
		task.SetSchedule(schedule)
	}

	attrs, err := collectAttrs(cmd)
	if err != nil {
		return err
	}
	if bucket := cmd.String("bucket"); bucket != "" {
		attrs["bucket"] = bucket
	}
	if folder := cmd.String("folder"); folder != "" {
		attrs["folder"] = folder
	}
	task.SetAttributes(attrs)

	task.SetEncryption(cmd.Bool("encryption"))
	task.SetFilenameEncryption(cmd.Bool("filename-encryption"))
	task.SetEncryptionPassword(cmd.String("encryption-password"))
	task.SetEncryptionSalt(cmd.String("encryption-salt"))
	if cmd.Bool("disabled") {
		task.SetEnabled(false)
	}

	if err := r.manager.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(taskView(task), true)
	}
	return r.writePlainln("✓ Task created: %s (%s)", task.Description(), task.ID())
}

// ListTasks prints sync tasks as a table or JSON.
func (r *Runner) ListTasks(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if cred := cmd.String("credential"); cred != "" {
		criteria["credential_id"] = cred
	}
	if cmd.IsSet("enabled") {
		criteria["enabled"] = cmd.Bool("enabled")
	}

	list, err := r.manager.ListTasks(criteria)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]map[string]any, len(list))
		for i, task := range list {
			views[i] = taskView(task)
		}
		return r.writeJSON(views, true)
	}
	return r.writePlain("%s\n", formatter.TasksTable(list))
}

// ShowTask prints one task as JSON.
func (r *Runner) ShowTask(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	task, err := r.manager.GetTask(cmd.String("id"))
	if err != nil {
		return err
	}
	return r.writeJSON(taskView(task), true)
}

// UpdateTask applies flag changes to a task and re-runs full validation.
func (r *Runner) UpdateTask(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	task, err := r.manager.GetTask(cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.IsSet("description") {
		task.SetDescription(cmd.String("description"))
	}
	if cmd.IsSet("direction") {
		direction, err := models.ParseDirection(strings.ToUpper(cmd.String("direction")))
		if err != nil {
			return err
		}
		task.SetDirection(direction)
	}
	if cmd.IsSet("mode") {
		mode, err := models.ParseTransferMode(strings.ToUpper(cmd.String("mode")))
		if err != nil {
			return err
		}
		task.SetTransferMode(mode)
	}
	if cmd.IsSet("path") {
		task.SetPath(cmd.String("path"))
	}
	if cmd.IsSet("schedule") {
		schedule, err := models.ParseSchedule(cmd.String("schedule"))
		if err != nil {
			return err
		}
		task.SetSchedule(schedule)
	}
	if cmd.IsSet("bucket") {
		task.SetAttribute("bucket", cmd.String("bucket"))
	}
	if cmd.IsSet("folder") {
		task.SetAttribute("folder", cmd.String("folder"))
	}
	attrs, err := collectAttrs(cmd)
	if err != nil {
		return err
	}
	for k, v := range attrs {
		task.SetAttribute(k, v)
	}
	if cmd.IsSet("encryption") {
		task.SetEncryption(cmd.Bool("encryption"))
	}
	if cmd.IsSet("filename-encryption") {
		task.SetFilenameEncryption(cmd.Bool("filename-encryption"))
	}
	if cmd.IsSet("encryption-password") {
		task.SetEncryptionPassword(cmd.String("encryption-password"))
	}
	if cmd.IsSet("encryption-salt") {
		task.SetEncryptionSalt(cmd.String("encryption-salt"))
	}
	if cmd.IsSet("enabled") {
		task.SetEnabled(cmd.Bool("enabled"))
	}

	if err := r.manager.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return r.writePlainln("✓ Task updated: %s", task.ID())
}

// DeleteTask removes a task.
func (r *Runner) DeleteTask(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	id := cmd.String("id")
	if err := r.manager.DeleteTask(id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return r.writePlainln("✓ Task deleted: %s", id)
}

// RunTask executes a task immediately. With --watch the run is followed in a
// terminal view; otherwise rclone's output streams to stdout until the run
// finishes.
func (r *Runner) RunTask(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	id := cmd.String("id")
	task, err := r.manager.GetTask(id)
	if err != nil {
		return err
	}

	if cmd.Bool("watch") {
		handle, err := r.manager.Run(ctx, id, nil)
		if err != nil {
			return err
		}
		model := ui.NewWatchModel(task.Description(), handle.Job, handle.Done)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("watch view failed: %w", err)
		}
		if err := model.Err(); err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		return nil
	}

	handle, err := r.manager.Run(ctx, id, r.output)
	if err != nil {
		return err
	}
	r.logger.Info("run started", "run", handle.RunID, "task", id)

	if err := <-handle.Done; err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return r.writePlainln("✓ Run finished: %s", handle.RunID)
}

// ListRemote lists a remote directory for a task. The path defaults to the
// task's own bucket/folder location.
func (r *Runner) ListRemote(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	entries, err := r.manager.ListDirectory(ctx, cmd.String("id"), cmd.String("path"))
	if err != nil {
		return fmt.Errorf("failed to list directory: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	return r.writePlain("%s\n", formatter.ListingTable(entries))
}

// ListRuns prints run history, most recent first.
func (r *Runner) ListRuns(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if id := cmd.String("id"); id != "" {
		criteria["task_id"] = id
	}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = strings.ToUpper(status)
	}

	runs, err := r.manager.ListRuns(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]map[string]any, len(runs))
		for i, run := range runs {
			views[i] = runView(run)
		}
		return r.writeJSON(views, true)
	}
	return r.writePlain("%s\n", formatter.RunsTable(runs))
}

// taskView is the serializable form of a task. Encryption secrets are never
// included.
func taskView(task *models.SyncTask) map[string]any {
	view := map[string]any{
		"id":                  task.ID(),
		"sequence":            task.Sequence(),
		"description":         task.Description(),
		"direction":           task.Direction(),
		"transfer_mode":       task.TransferMode(),
		"path":                task.Path(),
		"credential_id":       task.CredentialID(),
		"encryption":          task.Encryption(),
		"filename_encryption": task.FilenameEncryption(),
		"schedule":            task.Schedule().String(),
		"attributes":          task.Attributes(),
		"enabled":             task.Enabled(),
	}
	if cred := task.Credential(); cred != nil {
		view["credential_name"] = cred.Name()
	}
	return view
}

func runView(run *models.RunRecord) map[string]any {
	return map[string]any{
		"id":            run.ID(),
		"sequence":      run.Sequence(),
		"task_id":       run.TaskID(),
		"status":        run.Status(),
		"error_message": run.ErrorMessage(),
		"started_at":    run.StartedAt(),
		"finished_at":   run.FinishedAt(),
	}
}

func tasksCommand(r *Runner) *cli.Command {
	idFlag := &cli.StringFlag{
		Name:     "id",
		Usage:    "Task ID",
		Required: true,
	}
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output as JSON",
	}
	taskFlags := func() []cli.Flag {
		return append([]cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Human-readable task description"},
			&cli.StringFlag{Name: "direction", Usage: "PUSH (local to remote) or PULL (remote to local)"},
			&cli.StringFlag{Name: "mode", Usage: "SYNC, COPY or MOVE"},
			&cli.StringFlag{Name: "path", Usage: "Absolute local directory"},
			&cli.StringFlag{Name: "bucket", Usage: "Remote bucket (bucketed providers only)"},
			&cli.StringFlag{Name: "folder", Usage: "Remote folder"},
			&cli.StringFlag{Name: "schedule", Usage: "Five-field cron expression"},
			&cli.BoolFlag{Name: "encryption", Usage: "Encrypt remote data with a crypt remote"},
			&cli.BoolFlag{Name: "filename-encryption", Usage: "Also encrypt file names"},
			&cli.StringFlag{Name: "encryption-password", Usage: "Encryption password"},
			&cli.StringFlag{Name: "encryption-salt", Usage: "Encryption salt"},
		}, attrFlags()...)
	}

	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage and run sync tasks",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a sync task",
				Flags: append(taskFlags(),
					&cli.StringFlag{Name: "credential", Usage: "Credential ID", Required: true},
					&cli.BoolFlag{Name: "disabled", Usage: "Create the task disabled"},
					jsonFlag,
				),
				Action: r.CreateTask,
			},
			{
				Name:  "list",
				Usage: "List sync tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "credential", Usage: "Filter by credential ID"},
					&cli.BoolFlag{Name: "enabled", Usage: "Filter by enabled state"},
					jsonFlag,
				},
				Action: r.ListTasks,
			},
			{
				Name:   "show",
				Usage:  "Show one task",
				Flags:  []cli.Flag{idFlag},
				Action: r.ShowTask,
			},
			{
				Name:  "update",
				Usage: "Update a task",
				Flags: append(taskFlags(),
					idFlag,
					&cli.BoolFlag{Name: "enabled", Usage: "Enable or disable the task"},
				),
				Action: r.UpdateTask,
			},
			{
				Name:   "delete",
				Usage:  "Delete a task",
				Flags:  []cli.Flag{idFlag},
				Action: r.DeleteTask,
			},
			{
				Name:  "run",
				Usage: "Run a task now",
				Flags: []cli.Flag{
					idFlag,
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Follow the run in a terminal view"},
				},
				Action: r.RunTask,
			},
			{
				Name:  "ls",
				Usage: "List a task's remote directory",
				Flags: []cli.Flag{
					idFlag,
					&cli.StringFlag{Name: "path", Usage: "Remote path (defaults to the task's location)"},
					jsonFlag,
				},
				Action: r.ListRemote,
			},
			{
				Name:  "runs",
				Usage: "Show run history",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Filter by task ID"},
					&cli.StringFlag{Name: "status", Usage: "Filter by status (RUNNING, SUCCESS, FAILED)"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum rows", Value: 20},
					jsonFlag,
				},
				Action: r.ListRuns,
			},
		},
	}
}
