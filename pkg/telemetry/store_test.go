package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func speedTripUpdate(v float64) *Update {
	u := &Update{}
	u.Values.Speed, u.Values.Trip = v, v
	u.Changes = ChangeSetOf(TagSpeed, TagTrip)
	return u
}

func TestStoreObserver(t *testing.T) {
	s := NewStore()
	o := s.Observe()
	defer o.Close()

	<-o.Changed()
	snapshot, changes, err := o.Poll(time.Second)
	require.NoError(t, err)
	require.Equal(t, ChangeSetOf(Tags...), changes)
	require.Equal(t, DefaultState(), snapshot.State)
	require.Zero(t, snapshot.Version)
	require.False(t, o.Pending())

	u := &Update{Changes: ChangeSetOf(TagCharge)}
	u.Values.Charge = 80
	require.NoError(t, s.Apply(u))
	require.EqualValues(t, 1, s.Version())
	require.True(t, o.Pending())

	select {
	case <-o.Changed():
	default:
		t.Fatal("observer not signaled")
	}
	snapshot, changes, err = o.Poll(time.Second)
	require.NoError(t, err)
	require.Equal(t, ChangeSetOf(TagCharge), changes)
	require.EqualValues(t, 80, snapshot.State.Charge)
	require.EqualValues(t, 1, snapshot.Version)
	require.EqualValues(t, 1, o.Version())

	_, changes, err = o.Poll(time.Second)
	require.NoError(t, err)
	require.True(t, changes.Empty())
}

func TestStoreCoalesce(t *testing.T) {
	s := NewStore()
	o := s.Observe()
	defer o.Close()
	_, _, err := o.Poll(time.Second)
	require.NoError(t, err)
	<-o.Changed()

	require.NoError(t, s.Apply(speedTripUpdate(10)))
	u := &Update{Changes: ChangeSetOf(TagSpeed, TagArmed)}
	u.Values.Speed = 20
	require.NoError(t, s.Apply(u))

	<-o.Changed()
	select {
	case <-o.Changed():
		t.Fatal("signals not coalesced")
	default:
	}
	snapshot, changes, err := o.Poll(time.Second)
	require.NoError(t, err)
	require.Equal(t, ChangeSetOf(TagSpeed, TagTrip, TagArmed), changes)
	require.InDelta(t, 20.0, snapshot.State.Speed, 1e-9)
	require.InDelta(t, 10.0, snapshot.State.Trip, 1e-9)
	require.False(t, snapshot.State.Armed)
}

func TestStoreIndependentObservers(t *testing.T) {
	s := NewStore()
	a, b := s.Observe(), s.Observe()
	_, _, err := a.Poll(time.Second)
	require.NoError(t, err)
	_, _, err = b.Poll(time.Second)
	require.NoError(t, err)

	require.NoError(t, s.Apply(speedTripUpdate(1)))
	_, changes, err := a.Poll(time.Second)
	require.NoError(t, err)
	require.Equal(t, ChangeSetOf(TagSpeed, TagTrip), changes)

	u := &Update{Changes: ChangeSetOf(TagCharge)}
	require.NoError(t, s.Apply(u))
	_, changes, err = b.Poll(time.Second)
	require.NoError(t, err)
	require.Equal(t, ChangeSetOf(TagSpeed, TagTrip, TagCharge), changes)

	require.NoError(t, b.Close())
	s.observersLock.Lock()
	require.Len(t, s.observers, 1)
	s.observersLock.Unlock()
}

func TestStoreLockTimeout(t *testing.T) {
	s := NewStore()
	s.LockTimeout = 5 * time.Millisecond
	o := s.Observe()

	s.lock.Lock()
	require.Equal(t, ErrLockTimeout, s.Apply(speedTripUpdate(5)))
	_, _, err := o.Poll(time.Millisecond)
	require.Equal(t, ErrLockTimeout, err)
	_, err = s.Snapshot()
	require.Equal(t, ErrLockTimeout, err)
	s.lock.Unlock()

	require.Zero(t, s.Version())
	snapshot, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, DefaultState(), snapshot.State)

	// Pending changes survive a failed poll.
	require.NoError(t, s.Apply(speedTripUpdate(5)))
	_, changes, err := o.Poll(time.Second)
	require.NoError(t, err)
	require.True(t, changes.Has(TagSpeed))
}

func TestStoreAtomicFrames(t *testing.T) {
	s := NewStore()
	s.LockTimeout = time.Second
	require.NoError(t, s.Apply(speedTripUpdate(0)))
	o := s.Observe()
	const frames = 2000

	errCh := make(chan error, 1)
	go func() {
		for i := 1; i <= frames; i++ {
			if err := s.Apply(speedTripUpdate(float64(i))); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()

	var last uint64
	for {
		snapshot, _, err := o.Poll(time.Second)
		require.NoError(t, err)
		require.Equal(t, snapshot.State.Speed, snapshot.State.Trip)
		require.True(t, snapshot.Version >= last)
		last = snapshot.Version
		select {
		case err := <-errCh:
			require.NoError(t, err)
			snapshot, _, err = o.Poll(time.Second)
			require.NoError(t, err)
			require.EqualValues(t, frames+1, snapshot.Version)
			require.InDelta(t, float64(frames), snapshot.State.Speed, 1e-9)
			return
		case <-o.Changed():
		}
	}
}
