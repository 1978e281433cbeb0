package models

import (
	"fmt"
)

// Direction determines which side of the transfer is the destination.
type Direction string

const (
	DirectionPush Direction = "PUSH" // local path → remote
	DirectionPull Direction = "PULL" // remote → local path
)

// ParseDirection validates and normalizes a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionPush, DirectionPull:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q (must be PUSH or PULL)", s)
}

// TransferMode selects the rclone subcommand used for the transfer.
type TransferMode string

const (
	ModeSync TransferMode = "SYNC"
	ModeCopy TransferMode = "COPY"
	ModeMove TransferMode = "MOVE"
)

// ParseTransferMode validates and normalizes a transfer mode string.
func ParseTransferMode(s string) (TransferMode, error) {
	switch TransferMode(s) {
	case ModeSync, ModeCopy, ModeMove:
		return TransferMode(s), nil
	}
	return "", fmt.Errorf("invalid transfer mode %q (must be SYNC, COPY or MOVE)", s)
}

// Subcommand returns the rclone subcommand for this mode.
func (m TransferMode) Subcommand() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeCopy:
		return "copy"
	case ModeMove:
		return "move"
	}
	return ""
}

// SyncTask is a configured, schedulable transfer between a local path and a
// remote location identified by a credential plus task attributes.
//
// The two encryption secrets are stored encrypted at rest and only hold
// plaintext transiently after the manager's extend step.
type SyncTask struct {
	entity

	description        string
	direction          Direction
	transferMode       TransferMode
	path               string
	credentialID       string
	credential         *Credential // populated by extend, nil otherwise
	encryption         bool
	filenameEncryption bool
	encryptionPassword string
	encryptionSalt     string
	schedule           Schedule
	attributes         map[string]any
	enabled            bool
}

// NewSyncTask creates a SyncTask with the default schedule, enabled.
func NewSyncTask(sequence int, description string, direction Direction, mode TransferMode, path, credentialID string) *SyncTask {
	return &SyncTask{
		entity:       newEntity(sequence),
		description:  description,
		direction:    direction,
		transferMode: mode,
		path:         path,
		credentialID: credentialID,
		schedule:     DefaultSchedule(),
		attributes:   map[string]any{},
		enabled:      true,
	}
}

func (t *SyncTask) Description() string              { return t.description }
func (t *SyncTask) SetDescription(d string)          { t.description = d }
func (t *SyncTask) Direction() Direction             { return t.direction }
func (t *SyncTask) SetDirection(d Direction)         { t.direction = d }
func (t *SyncTask) TransferMode() TransferMode       { return t.transferMode }
func (t *SyncTask) SetTransferMode(m TransferMode)   { t.transferMode = m }
func (t *SyncTask) Path() string                     { return t.path }
func (t *SyncTask) SetPath(p string)                 { t.path = p }
func (t *SyncTask) CredentialID() string             { return t.credentialID }
func (t *SyncTask) SetCredentialID(id string)        { t.credentialID = id }
func (t *SyncTask) Credential() *Credential          { return t.credential }
func (t *SyncTask) SetCredential(c *Credential)      { t.credential = c }
func (t *SyncTask) Encryption() bool                 { return t.encryption }
func (t *SyncTask) SetEncryption(v bool)             { t.encryption = v }
func (t *SyncTask) FilenameEncryption() bool         { return t.filenameEncryption }
func (t *SyncTask) SetFilenameEncryption(v bool)     { t.filenameEncryption = v }
func (t *SyncTask) EncryptionPassword() string       { return t.encryptionPassword }
func (t *SyncTask) SetEncryptionPassword(s string)   { t.encryptionPassword = s }
func (t *SyncTask) EncryptionSalt() string           { return t.encryptionSalt }
func (t *SyncTask) SetEncryptionSalt(s string)       { t.encryptionSalt = s }
func (t *SyncTask) Schedule() Schedule               { return t.schedule }
func (t *SyncTask) SetSchedule(s Schedule)           { t.schedule = s }
func (t *SyncTask) Attributes() map[string]any       { return t.attributes }
func (t *SyncTask) SetAttributes(a map[string]any)   { t.attributes = a }
func (t *SyncTask) SetAttribute(key string, v any)   { t.attributes[key] = v }
func (t *SyncTask) Enabled() bool                    { return t.enabled }
func (t *SyncTask) SetEnabled(v bool)                { t.enabled = v }

// Folder returns the folder attribute, or "" when unset.
func (t *SyncTask) Folder() string {
	if v, ok := t.attributes["folder"].(string); ok {
		return v
	}
	return ""
}

// Bucket returns the bucket attribute, or "" when unset.
func (t *SyncTask) Bucket() string {
	if v, ok := t.attributes["bucket"].(string); ok {
		return v
	}
	return ""
}

// Validate checks structural invariants. Provider schema and folder checks
// are the task manager validator's job.
func (t *SyncTask) Validate() error {
	if _, err := ParseDirection(string(t.direction)); err != nil {
		return err
	}
	if _, err := ParseTransferMode(string(t.transferMode)); err != nil {
		return err
	}
	if t.path == "" {
		return fmt.Errorf("task path is required")
	}
	if t.credentialID == "" {
		return fmt.Errorf("task credential is required")
	}
	if !t.schedule.IsZero() {
		if err := t.schedule.Validate(); err != nil {
			return err
		}
	}
	return nil
}
