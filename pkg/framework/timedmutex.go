package framework

import (
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout indicates the lock was not acquired within the bound.
var ErrLockTimeout = errors.New("lock timeout")

// TimedMutex is an exclusive lock whose acquisition can be bounded
// by a timeout. It guards resources shared between the ingestion side
// and the presentation side, where the caller must rather skip a cycle
// than stall.
//
// The zero value is an unlocked mutex.
type TimedMutex struct {
	once sync.Once
	ch   chan struct{}
}

func (m *TimedMutex) init() {
	m.once.Do(func() {
		m.ch = make(chan struct{}, 1)
	})
}

// Lock acquires the lock, waiting as long as needed.
func (m *TimedMutex) Lock() {
	m.init()
	m.ch <- struct{}{}
}

// TryLock acquires the lock only if it's free.
func (m *TimedMutex) TryLock() bool {
	m.init()
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// LockTimeout acquires the lock within d. A non-positive d degrades
// to TryLock.
func (m *TimedMutex) LockTimeout(d time.Duration) error {
	if m.TryLock() {
		return nil
	}
	if d <= 0 {
		return ErrLockTimeout
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	}
}

// Unlock releases the lock. Unlocking an unlocked mutex panics.
func (m *TimedMutex) Unlock() {
	m.init()
	select {
	case <-m.ch:
	default:
		panic("framework: unlock of unlocked TimedMutex")
	}
}
