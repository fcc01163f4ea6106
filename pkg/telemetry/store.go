package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	fx "github.com/robotalks/evdash/pkg/framework"
)

// DefaultLockTimeout bounds the wait on the state lock.
const DefaultLockTimeout = 20 * time.Millisecond

// ErrLockTimeout indicates the state lock was not acquired in time.
var ErrLockTimeout = fx.ErrLockTimeout

// Snapshot is a copy of the state at a version.
type Snapshot struct {
	Version uint64
	Time    time.Time
	State   State
}

// Store owns the canonical State. The ingestion side writes one frame's
// fields per Apply, the presentation side reads through Observers.
type Store struct {
	// LockTimeout bounds both Apply and Poll.
	LockTimeout time.Duration

	lock        fx.TimedMutex
	state       State
	updated     time.Time
	tagVersions [256]uint64
	version     uint64

	observersLock sync.Mutex
	observers     map[*Observer]struct{}
}

// NewStore creates a Store holding DefaultState.
func NewStore() *Store {
	return &Store{
		LockTimeout: DefaultLockTimeout,
		state:       DefaultState(),
		updated:     time.Now(),
		observers:   make(map[*Observer]struct{}),
	}
}

// Version returns the number of updates applied. It doesn't take the lock.
func (s *Store) Version() uint64 {
	return atomic.LoadUint64(&s.version)
}

// Apply writes all fields of u in one critical section and notifies
// observers once. It returns ErrLockTimeout without touching the state
// if the lock is not acquired within LockTimeout.
func (s *Store) Apply(u *Update) error {
	if err := s.lock.LockTimeout(s.LockTimeout); err != nil {
		return err
	}
	s.state.Apply(u)
	s.updated = time.Now()
	version := atomic.LoadUint64(&s.version) + 1
	u.Changes.Each(func(tag Tag) {
		s.tagVersions[tag] = version
	})
	atomic.StoreUint64(&s.version, version)
	s.lock.Unlock()

	s.notify()
	return nil
}

// Snapshot reads the current state.
func (s *Store) Snapshot() (Snapshot, error) {
	if err := s.lock.LockTimeout(s.LockTimeout); err != nil {
		return Snapshot{}, err
	}
	defer s.lock.Unlock()
	return s.snapshotLocked(), nil
}

// View calls fn with the state while holding the lock. fn must not
// block.
func (s *Store) View(timeout time.Duration, fn func(*State)) error {
	if err := s.lock.LockTimeout(timeout); err != nil {
		return err
	}
	defer s.lock.Unlock()
	fn(&s.state)
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version: atomic.LoadUint64(&s.version),
		Time:    s.updated,
		State:   s.state,
	}
}

// Observe registers a new Observer which sees every field as changed
// on its first Poll.
func (s *Store) Observe() *Observer {
	o := &Observer{store: s, changedCh: make(chan struct{}, 1)}
	s.observersLock.Lock()
	s.observers[o] = struct{}{}
	s.observersLock.Unlock()
	o.signal()
	return o
}

func (s *Store) notify() {
	s.observersLock.Lock()
	defer s.observersLock.Unlock()
	for o := range s.observers {
		o.signal()
	}
}

// Observer tracks what changed for one consumer.
type Observer struct {
	store       *Store
	changedCh   chan struct{}
	lastVersion uint64
	polled      bool
}

// Changed is signaled after updates. Multiple updates between two
// receives coalesce into one signal.
func (o *Observer) Changed() <-chan struct{} {
	return o.changedCh
}

// Version is the store version seen by the last successful Poll.
func (o *Observer) Version() uint64 {
	return o.lastVersion
}

// Pending returns true if updates were applied since the last Poll.
func (o *Observer) Pending() bool {
	return !o.polled || o.store.Version() != o.lastVersion
}

// Poll returns the current state and the tags changed since the
// previous successful Poll. The first Poll reports all known tags.
// If the lock is not acquired within timeout, ErrLockTimeout is
// returned and the pending changes are kept for the next Poll.
func (o *Observer) Poll(timeout time.Duration) (Snapshot, ChangeSet, error) {
	s := o.store
	if err := s.lock.LockTimeout(timeout); err != nil {
		return Snapshot{}, ChangeSet{}, err
	}
	snapshot := s.snapshotLocked()
	var changes ChangeSet
	for _, tag := range Tags {
		if !o.polled || s.tagVersions[tag] > o.lastVersion {
			changes.Add(tag)
		}
	}
	s.lock.Unlock()
	o.lastVersion, o.polled = snapshot.Version, true
	return snapshot, changes, nil
}

// Notify re-arms Changed, e.g. to retry after a timed out Poll.
func (o *Observer) Notify() {
	o.signal()
}

// Close unregisters the Observer.
func (o *Observer) Close() error {
	o.store.observersLock.Lock()
	delete(o.store.observers, o)
	o.store.observersLock.Unlock()
	return nil
}

func (o *Observer) signal() {
	select {
	case o.changedCh <- struct{}{}:
	default:
	}
}
