// Package view keeps the remote state of a vehicle from its MQTT
// messages.
package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/robotalks/evdash/pkg/comm/mqtt"
	"github.com/robotalks/evdash/pkg/msgs"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Vehicle is the last known state of a remote vehicle.
type Vehicle struct {
	ID string

	lock     sync.Mutex
	info     *msgs.VehicleInfo
	state    telemetry.State
	received telemetry.ChangeSet
	version  uint64
	link     *msgs.LinkStatus
	fault    *msgs.InputFault
}

// New creates a Vehicle view.
func New(id string) *Vehicle {
	return &Vehicle{ID: id}
}

// Apply updates the view from an event and returns the telemetry tags
// it changed.
func (v *Vehicle) Apply(ev mqtt.Event) (changes telemetry.ChangeSet) {
	if ev.VehicleID != v.ID {
		return
	}
	v.lock.Lock()
	defer v.lock.Unlock()
	switch m := ev.Message.(type) {
	case *msgs.TelemetryUpdate:
		if m.Version < v.version {
			// Publisher restarted.
			v.received = telemetry.ChangeSet{}
		}
		v.version = m.Version
		changes = m.ApplyTo(&v.state)
		v.received.Merge(changes)
	case *msgs.LinkStatus:
		v.link = m
	case *msgs.InputFault:
		v.fault = m
	case *msgs.VehicleInfo:
		v.info = m
	}
	return
}

// Online returns false if the vehicle announced it went offline.
func (v *Vehicle) Online() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.info == nil || v.info.Online
}

// State returns the state and the tags received so far.
func (v *Vehicle) State() (telemetry.State, telemetry.ChangeSet, uint64) {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.state, v.received, v.version
}

// PrintState writes one label per received field.
func (v *Vehicle) PrintState(w io.Writer) {
	state, received, version := v.State()
	if received.Empty() {
		fmt.Fprintln(w, "No telemetry received")
		return
	}
	fmt.Fprintf(w, "%s version %d\n", v.ID, version)
	PrintFields(w, &state, received)
}

// PrintFields writes the label of each tag in changes.
func PrintFields(w io.Writer, state *telemetry.State, changes telemetry.ChangeSet) {
	changes.Each(func(tag telemetry.Tag) {
		fmt.Fprintf(w, "  %-12s %s\n", tag.Name(), state.Format(tag))
	})
}

// PrintLink writes the link health.
func (v *Vehicle) PrintLink(w io.Writer) {
	v.lock.Lock()
	link, fault := v.link, v.fault
	v.lock.Unlock()
	if link == nil {
		fmt.Fprintln(w, "No link status received")
	} else {
		connected := "disconnected"
		if link.Connected {
			connected = "connected"
		}
		fmt.Fprintf(w, "link %s, %d frames, %d rejected (%d checksum), %d resets, %d lock timeouts\n",
			connected, link.Frames, link.Rejected, link.ChecksumErrors, link.Resets, link.LockTimeouts)
	}
	if fault != nil && fault.Active {
		fmt.Fprintf(w, "input fault: %d consecutive timeouts since %s\n",
			fault.Consecutive, msgs.FromMillis(fault.SinceMs).Format("15:04:05"))
	}
}
