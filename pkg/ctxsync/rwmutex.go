// Package ctxsync contains locks whose acquisition can be abandoned when a
// context is done.
package ctxsync

import (
	"context"
)

// NewRWMutex creates a new instance of RWMutex.
func NewRWMutex() *RWMutex {
	m := &RWMutex{
		write:   make(chan struct{}, 1),
		readers: make(chan int, 1),
	}
	m.readers <- 0
	return m
}

// A RWMutex is a reader/writer mutual exclusion lock. The lock can be held by
// an arbitrary number of readers or a single writer. A steady flow of readers
// can keep a writer waiting.
type RWMutex struct {
	// write is full while a writer or at least one reader holds the lock.
	write chan struct{}
	// readers holds the number of readers. Receiving from it guards the
	// count.
	readers chan int
}

// Lock locks the mutex for writing with a context.Background().
func (m *RWMutex) Lock() {
	_ = m.LockWithContext(context.Background())
}

// LockWithContext locks for writing until Unlock is called or context is
// cancelled.
func (m *RWMutex) LockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.write <- struct{}{}:
		return nil
	}
}

// Unlock unlocks m for writing.
func (m *RWMutex) Unlock() {
	select {
	case <-m.write:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}

// RLock locks the mutex for reading with a context.Background().
func (m *RWMutex) RLock() {
	_ = m.RLockWithContext(context.Background())
}

// RLockWithContext locks for reading until RUnlock is called or context is
// cancelled.
func (m *RWMutex) RLockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var n int
	select {
	case <-ctx.Done():
		return ctx.Err()
	case n = <-m.readers:
	}
	if n == 0 {
		select {
		case <-ctx.Done():
			m.readers <- n
			return ctx.Err()
		case m.write <- struct{}{}:
		}
	}
	m.readers <- n + 1
	return nil
}

// RUnlock undoes a single RLock call.
func (m *RWMutex) RUnlock() {
	n := <-m.readers
	if n == 0 {
		m.readers <- n
		panic("ctxsync: runlock of unlocked mutex")
	}
	if n == 1 {
		<-m.write
	}
	m.readers <- n - 1
}
