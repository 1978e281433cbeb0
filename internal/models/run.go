package models

import (
	"fmt"
	"time"
)

// RunStatus tracks the lifecycle of a single task execution.
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// RunRecord is the persisted outcome of one task execution. Records are
// written when a run starts and updated once when it finishes.
type RunRecord struct {
	entity

	taskID       string
	status       RunStatus
	errorMessage string
	startedAt    time.Time
	finishedAt   *time.Time
}

// NewRunRecord creates a RUNNING record for the given task.
func NewRunRecord(sequence int, taskID string) *RunRecord {
	return &RunRecord{
		entity:    newEntity(sequence),
		taskID:    taskID,
		status:    RunRunning,
		startedAt: time.Now(),
	}
}

func (r *RunRecord) TaskID() string               { return r.taskID }
func (r *RunRecord) SetTaskID(id string)          { r.taskID = id }
func (r *RunRecord) Status() RunStatus            { return r.status }
func (r *RunRecord) SetStatus(s RunStatus)        { r.status = s }
func (r *RunRecord) ErrorMessage() string         { return r.errorMessage }
func (r *RunRecord) SetErrorMessage(msg string)   { r.errorMessage = msg }
func (r *RunRecord) StartedAt() time.Time         { return r.startedAt }
func (r *RunRecord) SetStartedAt(t time.Time)     { r.startedAt = t }
func (r *RunRecord) FinishedAt() *time.Time       { return r.finishedAt }
func (r *RunRecord) SetFinishedAt(t *time.Time)   { r.finishedAt = t }

// Finish marks the record finished with the given status and optional error text.
func (r *RunRecord) Finish(status RunStatus, errMsg string) {
	now := time.Now()
	r.status = status
	r.errorMessage = errMsg
	r.finishedAt = &now
}

// Validate checks structural invariants.
func (r *RunRecord) Validate() error {
	if r.taskID == "" {
		return fmt.Errorf("run task id is required")
	}
	switch r.status {
	case RunRunning, RunSuccess, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}
	return nil
}
