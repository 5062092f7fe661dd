// Package lock provides keyed in-process locking. The engine serializes
// skill recomputation and ledger operations per player, and order
// matching per item, by locking the entity id before opening the
// database transaction.
package lock

import (
	"context"
	"sync"
	"time"
)

// entityMutex wraps a mutex with reference counting for reuse.
type entityMutex struct {
	mu       sync.Mutex
	refCount int
}

// EntityLock provides per-entity locking keyed by a numeric id.
// Player ids and item ids live in separate EntityLock instances so the
// key spaces never collide.
type EntityLock struct {
	locks sync.Map // map[int64]*entityMutex
	pool  sync.Pool
}

// NewEntityLock creates a new EntityLock instance.
func NewEntityLock() *EntityLock {
	return &EntityLock{
		pool: sync.Pool{
			New: func() any {
				return &entityMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given entity id.
func (el *EntityLock) getLock(id int64) *entityMutex {
	if v, ok := el.locks.Load(id); ok {
		return v.(*entityMutex)
	}

	newLock := el.pool.Get().(*entityMutex)
	newLock.refCount = 0

	actual, loaded := el.locks.LoadOrStore(id, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		el.pool.Put(newLock)
	}
	return actual.(*entityMutex)
}

// Lock acquires the lock for an entity.
func (el *EntityLock) Lock(id int64) {
	lock := el.getLock(id)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for an entity.
func (el *EntityLock) Unlock(id int64) {
	if v, ok := el.locks.Load(id); ok {
		lock := v.(*entityMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (el *EntityLock) TryLock(id int64) bool {
	lock := el.getLock(id)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// LockWithTimeout attempts to acquire the lock within the timeout.
func (el *EntityLock) LockWithTimeout(ctx context.Context, id int64, timeout time.Duration) bool {
	lock := el.getLock(id)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		lock.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will eventually acquire the mutex;
		// release it again so the lock is not leaked.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the entity's lock.
func (el *EntityLock) WithLock(id int64, fn func() error) error {
	el.Lock(id)
	defer el.Unlock(id)
	return fn()
}

// WithPairLock executes fn while holding both entities' locks.
// Locks are always taken in ascending id order so two concurrent
// operations sharing a participant cannot deadlock. Both ids equal is
// treated as a single lock.
func (el *EntityLock) WithPairLock(a, b int64, fn func() error) error {
	if a == b {
		return el.WithLock(a, fn)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	el.Lock(first)
	defer el.Unlock(first)
	el.Lock(second)
	defer el.Unlock(second)
	return fn()
}
