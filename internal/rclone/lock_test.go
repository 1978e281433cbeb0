package rclone

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/skysync/internal/shared"
)

func TestKeyedLockSerializes(t *testing.T) {
	locks := NewKeyedLock()
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		r2, err := locks.Acquire(ctx, "task-1")
		if err != nil {
			t.Errorf("queued Acquire: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		r2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("queued Acquire never completed after release")
	}
}

func TestKeyedLockRejectsThird(t *testing.T) {
	locks := NewKeyedLock()
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	var wg sync.WaitGroup
	wg.Add(1)
	queued := make(chan struct{})
	go func() {
		defer wg.Done()
		// observe the queue slot being taken before the third attempt
		close(queued)
		r, err := locks.Acquire(ctx, "task-1")
		if err == nil {
			r()
		}
	}()
	<-queued
	time.Sleep(50 * time.Millisecond)

	if _, err := locks.Acquire(ctx, "task-1"); !errors.Is(err, shared.ErrLockBusy) {
		t.Errorf("third Acquire error = %v, want ErrLockBusy", err)
	}

	release()
	wg.Wait()
}

func TestKeyedLockIndependentKeys(t *testing.T) {
	locks := NewKeyedLock()
	ctx := context.Background()

	r1, err := locks.Acquire(ctx, "task-1")
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	r2, err := locks.Acquire(ctx, "task-2")
	if err != nil {
		t.Fatalf("Acquire for a different key blocked: %v", err)
	}
	r2()
}

func TestKeyedLockContextCancel(t *testing.T) {
	locks := NewKeyedLock()

	release, err := locks.Acquire(context.Background(), "task-1")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := locks.Acquire(ctx, "task-1")
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("queued Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("queued Acquire did not return after cancel")
	}

	// the vacated queue slot must be reusable
	go func() {
		r, err := locks.Acquire(context.Background(), "task-1")
		if err != nil {
			done <- err
			return
		}
		r()
		done <- nil
	}()
	time.Sleep(50 * time.Millisecond)
	release()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Acquire after cancelled waiter: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire after cancelled waiter never completed")
	}
}
