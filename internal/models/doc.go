// Package models defines domain entities and persistence interfaces for the skysync transfer orchestrator.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs exchanged with the rclone layer
//   - [RemoteEntry] : A single file or directory returned by a remote listing
//   - [Schedule] : Cron-style schedule split into its five fields
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Credential] : Stored authentication attributes for one cloud provider account
//   - [SyncTask] : A configured, schedulable transfer between a local path and a remote
//   - [RunRecord] : Outcome of a single task execution
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
