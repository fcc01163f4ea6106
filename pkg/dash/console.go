package dash

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Console prints one label line per changed field.
type Console struct {
	Writer io.Writer
}

// TelemetryChanged implements Listener.
func (c *Console) TelemetryChanged(cc fx.ControlContext, snapshot telemetry.Snapshot, changes telemetry.ChangeSet) {
	ts := snapshot.Time.Format("15:04:05.000")
	changes.Each(func(tag telemetry.Tag) {
		fmt.Fprintf(c.Writer, "%s %-12s %s\n", ts, tag.Name(), snapshot.State.Format(tag))
	})
}

// JSONWriter writes one JSON encoded Change per line.
type JSONWriter struct {
	Writer io.Writer
}

// TelemetryChanged implements Listener.
func (w *JSONWriter) TelemetryChanged(cc fx.ControlContext, snapshot telemetry.Snapshot, changes telemetry.ChangeSet) {
	encoded, err := json.Marshal(NewChange(snapshot, changes))
	if err != nil {
		glog.Errorf("encode change error: %v", err)
		return
	}
	w.Writer.Write(append(encoded, '\n'))
}
