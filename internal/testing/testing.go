// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/desertthunder/skysync/internal/models"
	"github.com/desertthunder/skysync/internal/rclone"
)

// MockExecutor is a test double for the rclone executor. The function fields
// control behavior; unset fields succeed with empty results.
type MockExecutor struct {
	RunFunc  func(ctx context.Context, job rclone.Job, task *models.SyncTask) error
	ListFunc func(ctx context.Context, task *models.SyncTask, path string) ([]models.RemoteEntry, error)

	RunCalls  []string // task IDs, in order
	ListCalls []string // paths, in order
}

func (m *MockExecutor) Run(ctx context.Context, job rclone.Job, task *models.SyncTask) error {
	m.RunCalls = append(m.RunCalls, task.ID())
	if m.RunFunc != nil {
		return m.RunFunc(ctx, job, task)
	}
	return nil
}

func (m *MockExecutor) List(ctx context.Context, task *models.SyncTask, path string) ([]models.RemoteEntry, error) {
	m.ListCalls = append(m.ListCalls, path)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, task, path)
	}
	return []models.RemoteEntry{}, nil
}

// PlainSecrets is a pass-through secret store for tests that don't care about
// at-rest encryption.
type PlainSecrets struct{}

func (PlainSecrets) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (PlainSecrets) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
