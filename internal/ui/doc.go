// Package ui contains the terminal UI shown by `skysync tasks run --watch`.
//
// The watch model follows a running transfer: it drains the job's progress
// channel into Elm-style messages and renders the latest stats line with a
// spinner until the run's Done channel resolves.
package ui
