package rclone

import (
	"context"
	"sync"

	"github.com/desertthunder/skysync/internal/shared"
)

// KeyedLock serializes work per key with a wait queue of depth one. The first
// caller runs immediately, a second caller blocks until the first releases,
// and any further caller gets ErrLockBusy without blocking. A run requested
// while one is already queued would see no state the queued run won't.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem     chan struct{}
	waiting int
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: map[string]*lockEntry{}}
}

// Acquire takes the lock for key, returning a release function. It returns
// ErrLockBusy when another caller is already waiting, or ctx.Err() if the
// context ends while queued.
func (k *KeyedLock) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}

	select {
	case e.sem <- struct{}{}:
		k.mu.Unlock()
		return func() { k.release(key) }, nil
	default:
	}

	if e.waiting > 0 {
		k.mu.Unlock()
		return nil, shared.ErrLockBusy
	}
	e.waiting++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		k.mu.Lock()
		e.waiting--
		k.mu.Unlock()
		return func() { k.release(key) }, nil
	case <-ctx.Done():
		k.mu.Lock()
		e.waiting--
		k.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (k *KeyedLock) release(key string) {
	k.mu.Lock()
	e := k.locks[key]
	<-e.sem
	if e.waiting == 0 && len(e.sem) == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
