// package tasks implements the orchestration layer between stored records and
// the rclone executor.
//
// The core abstraction is Manager, which owns credential and task lifecycle,
// validation against provider schemas, pre-flight remote checks, and run
// execution with persisted history. Runs emit progress through jobs.Job
// channels for non-blocking status reporting to CLI/UI layers.
package tasks
