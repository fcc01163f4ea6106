package dash

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Adapter polls an Observer on the loop and forwards changes to the
// Listener. A poll that times out skips the cycle, the changes stay
// pending for the next one.
type Adapter struct {
	Observer    *telemetry.Observer
	Listener    Listener
	PollTimeout time.Duration
	Priority    int

	skipped uint64
}

// NewAdapter creates an Adapter with its own Observer.
func NewAdapter(store *telemetry.Store, listener Listener) *Adapter {
	return &Adapter{
		Observer:    store.Observe(),
		Listener:    listener,
		PollTimeout: defaultConfig.PollTimeout,
		Priority:    fx.PrLvRender,
	}
}

// AddToLoop implements LoopAdder.
func (a *Adapter) AddToLoop(l *fx.Loop) {
	l.AddController(a.Priority, a)
}

// Run implements Runnable. It wakes up the loop when telemetry changes.
func (a *Adapter) Run(ctx context.Context) error {
	defer a.Observer.Close()
	ctl := fx.LoopCtlFrom(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.Observer.Changed():
			ctl.TriggerNext()
		}
	}
}

// Control implements Controller.
func (a *Adapter) Control(cc fx.ControlContext) error {
	if !a.Observer.Pending() {
		return nil
	}
	snapshot, changes, err := a.Observer.Poll(a.PollTimeout)
	if err != nil {
		a.skipped++
		glog.V(1).Infof("refresh skipped (%d): %v", a.skipped, err)
		return nil
	}
	if changes.Empty() {
		return nil
	}
	if a.Listener != nil {
		a.Listener.TelemetryChanged(cc, snapshot, changes)
	}
	return nil
}

// Skipped returns the number of cycles skipped on lock timeout.
func (a *Adapter) Skipped() uint64 {
	return a.skipped
}
