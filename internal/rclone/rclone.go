package rclone

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/shared"
)

// Job receives the output and progress of a running transfer.
type Job interface {
	SetProgress(percent *float64, message string)
	Log() io.Writer
}

// transferredPattern matches the periodic stats block. The byte variant
// ("Transferred: 1.2 MiB / 10 MiB, 12%, 204 KiB/s, ETA 43s") is forwarded as
// the progress message; a bare numeric value is a file counter and skipped.
var transferredPattern = regexp.MustCompile(`Transferred:\s*(.+)$`)

// errorTailLines bounds the diagnostic excerpt attached to a failed run.
const errorTailLines = 20

// Executor runs the external tool. It holds the per-task lock table, so a
// single Executor must be shared by everything that starts transfers.
type Executor struct {
	binary        string
	statsInterval string
	registry      *providers.Registry
	locks         *KeyedLock
	logger        *log.Logger
}

func NewExecutor(conf shared.RcloneConfig, registry *providers.Registry, logger *log.Logger) *Executor {
	binary := conf.Binary
	if binary == "" {
		binary = "rclone"
	}
	interval := conf.StatsInterval
	if interval == "" {
		interval = "1s"
	}
	return &Executor{
		binary:        binary,
		statsInterval: interval,
		registry:      registry,
		locks:         NewKeyedLock(),
		logger:        logger,
	}
}

// Run executes the task's transfer under its single-flight lock. It blocks
// until the subprocess exits and its output is fully drained; on failure the
// returned error wraps shared.ErrRcloneFailed and carries the tail of the
// tool's output.
func (e *Executor) Run(ctx context.Context, job Job, task *models.SyncTask) error {
	release, err := e.locks.Acquire(ctx, task.ID())
	if err != nil {
		return err
	}
	defer release()

	cfg, err := BuildConfig(e.registry, task)
	if err != nil {
		return err
	}
	defer cfg.Close()

	args := []string{"--config", cfg.Path, "-v", "--stats", e.statsInterval, task.TransferMode().Subcommand()}
	if task.Direction() == models.DirectionPush {
		args = append(args, task.Path(), cfg.Remote)
	} else {
		args = append(args, cfg.Remote, task.Path())
	}

	e.logger.Debug("starting transfer", "task", task.ID(), "mode", task.TransferMode().Subcommand(), "direction", task.Direction())

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return fmt.Errorf("%w: %v", shared.ErrRcloneFailed, err)
	}

	tail := make(chan []string, 1)
	go func() {
		tail <- e.scanOutput(job, pr)
	}()

	waitErr := cmd.Wait()
	pw.Close()
	lastLines := <-tail

	if waitErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v\n%s", shared.ErrRcloneFailed, waitErr, strings.Join(lastLines, "\n"))
	}
	return nil
}

// scanOutput forwards every line to the job log, extracts throttled progress
// updates, and returns the final lines for error reporting.
func (e *Executor) scanOutput(job Job, r io.Reader) []string {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	var tail []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(job.Log(), line)

		tail = append(tail, line)
		if len(tail) > errorTailLines {
			tail = tail[1:]
		}

		m := transferredPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		progress := strings.TrimSpace(m[1])
		if isBareCount(progress) || !limiter.Allow() {
			continue
		}
		job.SetProgress(nil, progress)
	}
	return tail
}

// isBareCount reports whether the stats value is only a file counter, which
// carries no information worth surfacing. Byte progress always includes
// units and rates.
func isBareCount(progress string) bool {
	if progress == "" {
		return false
	}
	for _, r := range progress {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// List runs lsjson against the task's remote at the given path and parses the
// entries. The path is relative to the backend root; listing deliberately
// bypasses any crypt wrapping so pre-flight checks see the real layout.
func (e *Executor) List(ctx context.Context, task *models.SyncTask, path string) ([]models.RemoteEntry, error) {
	cfg, err := BuildConfig(e.registry, task)
	if err != nil {
		return nil, err
	}
	defer cfg.Close()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, "--config", cfg.Path, "lsjson", "remote:"+path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrRcloneFailed, msg)
	}

	var entries []models.RemoteEntry
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	return entries, nil
}
