// Package dash is the boundary between the telemetry store and whatever
// presents it. Listeners only ever see a snapshot and the set of tags
// changed since their previous notification.
package dash

import (
	"time"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Listener receives telemetry changes on the presentation loop.
type Listener interface {
	TelemetryChanged(fx.ControlContext, telemetry.Snapshot, telemetry.ChangeSet)
}

// ListenerFunc is func type of Listener.
type ListenerFunc func(fx.ControlContext, telemetry.Snapshot, telemetry.ChangeSet)

// TelemetryChanged implements Listener.
func (f ListenerFunc) TelemetryChanged(cc fx.ControlContext, snapshot telemetry.Snapshot, changes telemetry.ChangeSet) {
	f(cc, snapshot, changes)
}

// Caster broadcasts to multiple listeners.
type Caster struct {
	Listeners []Listener
}

// Add adds listeners.
func (c *Caster) Add(listeners ...Listener) *Caster {
	c.Listeners = append(c.Listeners, listeners...)
	return c
}

// TelemetryChanged implements Listener.
func (c *Caster) TelemetryChanged(cc fx.ControlContext, snapshot telemetry.Snapshot, changes telemetry.ChangeSet) {
	for _, l := range c.Listeners {
		l.TelemetryChanged(cc, snapshot, changes)
	}
}

// Change is the serialized form of a notification.
type Change struct {
	Version uint64                 `json:"version"`
	Time    time.Time              `json:"time"`
	Fields  map[string]interface{} `json:"fields"`
}

// NewChange creates a Change carrying the changed fields.
func NewChange(snapshot telemetry.Snapshot, changes telemetry.ChangeSet) *Change {
	c := &Change{
		Version: snapshot.Version,
		Time:    snapshot.Time,
		Fields:  make(map[string]interface{}, changes.Len()),
	}
	changes.Each(func(tag telemetry.Tag) {
		c.Fields[tag.Name()] = FieldValue(&snapshot.State, tag)
	})
	return c
}

// FieldValue returns the field in its natural type.
func FieldValue(s *telemetry.State, tag telemetry.Tag) interface{} {
	switch tag {
	case telemetry.TagMode:
		return s.Mode.String()
	case telemetry.TagArmed:
		return s.Armed
	case telemetry.TagCharge:
		return int(s.Charge)
	}
	return s.Value(tag)
}
