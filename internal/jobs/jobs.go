// Package jobs provides the observer handed to a running transfer: a progress
// channel for live consumers and a log sink that captures the tool's output.
package jobs

import (
	"bytes"
	"io"
	"sync"

	"github.com/desertthunder/skysync/internal/shared"
)

// Update is a single progress report. Percent is nil when the source only
// produced a human-readable status line.
type Update struct {
	Percent *float64
	Message string
}

// Job observes one transfer run. Updates are delivered best-effort: when the
// consumer lags, intermediate updates are dropped rather than stalling the
// transfer's output scanner.
type Job struct {
	id     string
	taskID string

	updates chan Update

	mu   sync.Mutex
	last Update
	log  bytes.Buffer
	sink io.Writer
}

// New creates a Job for the given task. When sink is non-nil every log line
// is mirrored to it in addition to the in-memory capture.
func New(taskID string, sink io.Writer) *Job {
	return &Job{
		id:      shared.GenerateID(),
		taskID:  taskID,
		updates: make(chan Update, 16),
		sink:    sink,
	}
}

func (j *Job) ID() string     { return j.id }
func (j *Job) TaskID() string { return j.taskID }

// Updates is the consumer side of the progress channel. It is closed by
// Close once the run finishes.
func (j *Job) Updates() <-chan Update { return j.updates }

// SetProgress records the latest progress and offers it to the channel
// without blocking.
func (j *Job) SetProgress(percent *float64, message string) {
	u := Update{Percent: percent, Message: message}
	j.mu.Lock()
	j.last = u
	j.mu.Unlock()
	select {
	case j.updates <- u:
	default:
	}
}

// Progress returns the most recent update.
func (j *Job) Progress() Update {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Log returns the sink for the tool's output lines.
func (j *Job) Log() io.Writer { return (*jobLog)(j) }

// Output returns everything written to the log so far.
func (j *Job) Output() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.String()
}

// Close ends the update stream. The runner calls it exactly once, after the
// subprocess has exited and its output is fully drained.
func (j *Job) Close() { close(j.updates) }

type jobLog Job

func (l *jobLog) Write(p []byte) (int, error) {
	j := (*Job)(l)
	j.mu.Lock()
	j.log.Write(p)
	j.mu.Unlock()
	if j.sink != nil {
		return j.sink.Write(p)
	}
	return len(p), nil
}
