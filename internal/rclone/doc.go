// Package rclone drives the external rclone binary: it generates ephemeral
// configuration files from task and credential records, executes transfers as
// monitored subprocesses with live progress extraction, and runs read-only
// directory listings through the same config machinery.
//
// The package never talks to a cloud backend itself. Its obligations are the
// orchestration guarantees around the tool: obscured passwords in generated
// configs, owner-only config files removed on every exit path, at most one
// in-flight execution per task with a single queued follow-up, and progress
// that is lossy by design but never blocks the transfer.
package rclone
