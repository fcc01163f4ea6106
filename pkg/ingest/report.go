package ingest

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
)

// Reporter logs a summary of the link stats periodically.
type Reporter struct {
	Link     *Link
	Interval time.Duration

	last time.Time
	prev Stats
}

// AddToLoop implements LoopAdder.
func (r *Reporter) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvIdle, r)
}

// Control implements Controller.
func (r *Reporter) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if r.last.IsZero() {
		r.last = now
		return nil
	}
	if now.Sub(r.last) < r.Interval {
		return nil
	}
	st := r.Link.Stats()
	glog.Info(r.summary(st, now.Sub(r.last)))
	r.last, r.prev = now, st
	return nil
}

// summary describes the stats since the previous report.
func (r *Reporter) summary(st Stats, elapsed time.Duration) string {
	state := "down"
	if st.Connected {
		state = "up"
	}
	return fmt.Sprintf("link %s: %.1f frames/s, %d rejected (%d checksum), %d resets, %d lock timeouts",
		state,
		float64(st.Wire.Frames-r.prev.Wire.Frames)/elapsed.Seconds(),
		st.Wire.Rejected-r.prev.Wire.Rejected,
		st.Wire.ChecksumErrors-r.prev.Wire.ChecksumErrors,
		st.Wire.Resets-r.prev.Wire.Resets,
		st.LockTimeouts-r.prev.LockTimeouts)
}
