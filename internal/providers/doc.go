// Package providers defines the cloud storage provider descriptors and the
// registry the rest of skysync resolves them from.
//
// A Provider describes one rclone backend: its credential and task attribute
// schemas, whether its storage is bucket-scoped, whether it is read-only, and
// hooks that inject extra config keys or provider-specific validation rules.
// Providers carry no network clients; talking to the backend is rclone's job.
//
// The Registry is built once from a compile-time registration list and is
// immutable afterwards, so it is shared by reference without locking.
package providers
