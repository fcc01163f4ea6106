package framework

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimedMutex(t *testing.T) {
	var m TimedMutex
	require.True(t, m.TryLock())
	require.False(t, m.TryLock())
	require.Equal(t, ErrLockTimeout, m.LockTimeout(0))

	start := time.Now()
	require.Equal(t, ErrLockTimeout, m.LockTimeout(20*time.Millisecond))
	require.True(t, time.Since(start) >= 20*time.Millisecond)

	m.Unlock()
	require.NoError(t, m.LockTimeout(time.Millisecond))
	m.Unlock()
}

func TestTimedMutexHandOver(t *testing.T) {
	var m TimedMutex
	m.Lock()
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.LockTimeout(time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	m.Unlock()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock not handed over")
	}
	m.Unlock()
}

func TestTimedMutexExclusive(t *testing.T) {
	var m TimedMutex
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 800, counter)
}

func TestTimedMutexUnlockUnlocked(t *testing.T) {
	var m TimedMutex
	require.Panics(t, func() { m.Unlock() })
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errs.Add(nil, ErrLockTimeout)
	require.Equal(t, "lock timeout", errs.Aggregate().Error())
	errs.Add(ErrLockTimeout)
	require.Equal(t, "Multiple errors:\nlock timeout\nlock timeout", errs.Aggregate().Error())
}
