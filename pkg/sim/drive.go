package sim

import (
	"math"
	"time"
)

// ramp estimates speed while accelerating towards a target at a
// constant rate.
type ramp struct {
	startSpeed float64
	target     float64
	accel      float64
	startTime  time.Time
	endTime    time.Time
}

func newRamp(current, target, accel float64, now time.Time) ramp {
	r := ramp{startSpeed: current, target: target, accel: math.Abs(accel), startTime: now, endTime: now}
	if r.accel == 0 {
		r.startSpeed = target
		return r
	}
	if diff := math.Abs(target - current); diff > 0 {
		r.endTime = now.Add(time.Duration(diff * float64(time.Second) / r.accel))
	}
	if current > target {
		r.accel = -r.accel
	}
	return r
}

// speedAt returns the speed at t.
func (r ramp) speedAt(t time.Time) float64 {
	if !t.Before(r.endTime) {
		return r.target
	}
	if t.Before(r.startTime) {
		return r.startSpeed
	}
	return r.startSpeed + r.accel*t.Sub(r.startTime).Seconds()
}

// reached returns true if the target speed is reached at t.
func (r ramp) reached(t time.Time) bool {
	return !t.Before(r.endTime)
}

// Segment is a step of a drive profile: accelerate to Speed (km/h) and
// hold it for Hold.
type Segment struct {
	Speed float64
	Hold  time.Duration
}

// DefaultProfile is a short urban cycle with a highway stretch.
var DefaultProfile = []Segment{
	{Speed: 0, Hold: 5 * time.Second},
	{Speed: 30, Hold: 20 * time.Second},
	{Speed: 50, Hold: 30 * time.Second},
	{Speed: 0, Hold: 10 * time.Second},
	{Speed: 80, Hold: 60 * time.Second},
	{Speed: 45, Hold: 20 * time.Second},
}

// Driver follows a profile cyclically.
type Driver struct {
	Profile []Segment

	index     int
	ramp      ramp
	holdUntil time.Time
	started   bool
}

// Target returns the speed of the current segment.
func (d *Driver) Target() float64 {
	if len(d.Profile) == 0 {
		return 0
	}
	return d.Profile[d.index].Speed
}

// Speed advances the profile to now and returns the speed.
func (d *Driver) Speed(now time.Time, accel float64) float64 {
	if len(d.Profile) == 0 {
		return 0
	}
	if !d.started {
		d.started = true
		d.ramp = newRamp(0, d.Target(), accel, now)
	}
	// Zero hold segments don't consume time, visit each at most once.
	for i := 0; i <= len(d.Profile) && d.ramp.reached(now); i++ {
		if d.holdUntil.IsZero() {
			d.holdUntil = d.ramp.endTime.Add(d.Profile[d.index].Hold)
		}
		if now.Before(d.holdUntil) {
			break
		}
		start := d.holdUntil
		d.index = (d.index + 1) % len(d.Profile)
		d.holdUntil = time.Time{}
		d.ramp = newRamp(d.ramp.target, d.Target(), accel, start)
	}
	return d.ramp.speedAt(now)
}
