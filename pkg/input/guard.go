package input

import (
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/input/device"
)

// ErrLockTimeout indicates the input lock was not acquired in time.
var ErrLockTimeout = fx.ErrLockTimeout

// DefaultTimeout bounds the wait on the input lock.
const DefaultTimeout = 10 * time.Millisecond

// Fault describes the escalation state of the input path.
type Fault struct {
	// Active is true while consecutive timeouts exceed the limit.
	Active bool
	// Consecutive is the number of consecutive timed out reads.
	Consecutive int
	// Since is when the first of the consecutive timeouts happened.
	Since time.Time
}

// FaultNotifier is called when the fault state changes.
type FaultNotifier interface {
	InputFaultChanged(Fault)
}

// FaultChangedFunc is func type of FaultNotifier.
type FaultChangedFunc func(Fault)

// InputFaultChanged implements FaultNotifier.
func (f FaultChangedFunc) InputFaultChanged(fault Fault) {
	f(fault)
}

// Guard serializes access to the latest touch state between the
// device reader and the presentation loop. Both sides wait at most
// Timeout; a reader that times out sees "no new input".
type Guard struct {
	Timeout time.Duration
	// EscalateAfter is the number of consecutive timed out reads which
	// raise a fault, 0 disables escalation.
	EscalateAfter int
	Notifier      FaultNotifier

	lock    fx.TimedMutex
	touch   device.Touch
	fresh   bool
	dropped uint64

	faultLock sync.Mutex
	fault     Fault
}

// NewGuard creates a Guard.
func NewGuard() *Guard {
	return &Guard{Timeout: DefaultTimeout}
}

// Post stores the latest touch state. It returns ErrLockTimeout and
// drops the state if the lock is not acquired in time.
func (g *Guard) Post(t device.Touch) error {
	if err := g.lock.LockTimeout(g.Timeout); err != nil {
		g.dropped++
		return err
	}
	g.touch, g.fresh = t, true
	g.lock.Unlock()
	return nil
}

// Take returns the touch state posted since the previous Take. ok is
// false when there is nothing new or the lock timed out.
func (g *Guard) Take() (t device.Touch, ok bool) {
	if err := g.lock.LockTimeout(g.Timeout); err != nil {
		g.timedOut()
		return device.Touch{}, false
	}
	t, ok = g.touch, g.fresh
	g.fresh = false
	g.lock.Unlock()
	g.recovered()
	return
}

// Fault returns the current fault state.
func (g *Guard) Fault() Fault {
	g.faultLock.Lock()
	defer g.faultLock.Unlock()
	return g.fault
}

func (g *Guard) timedOut() {
	g.faultLock.Lock()
	if g.fault.Consecutive == 0 {
		g.fault.Since = time.Now()
	}
	g.fault.Consecutive++
	raise := g.EscalateAfter > 0 && !g.fault.Active && g.fault.Consecutive >= g.EscalateAfter
	if raise {
		g.fault.Active = true
	}
	fault := g.fault
	g.faultLock.Unlock()

	glog.V(1).Infof("input lock timeout (%d consecutive)", fault.Consecutive)
	if raise {
		glog.Warningf("input unavailable after %d consecutive lock timeouts", fault.Consecutive)
		g.notify(fault)
	}
}

func (g *Guard) recovered() {
	g.faultLock.Lock()
	cleared := g.fault.Active
	g.fault = Fault{}
	g.faultLock.Unlock()
	if cleared {
		glog.Info("input recovered")
		g.notify(Fault{})
	}
}

func (g *Guard) notify(fault Fault) {
	if n := g.Notifier; n != nil {
		n.InputFaultChanged(fault)
	}
}
