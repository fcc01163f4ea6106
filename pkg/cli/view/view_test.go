package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/evdash/pkg/comm/mqtt"
	"github.com/robotalks/evdash/pkg/msgs"
	"github.com/robotalks/evdash/pkg/telemetry"
)

func telemetryEvent(id string, version uint64, speed float64) mqtt.Event {
	snapshot := telemetry.Snapshot{Version: version, Time: time.Now(), State: telemetry.DefaultState()}
	snapshot.State.Speed = speed
	return mqtt.Event{
		VehicleID: id,
		Kind:      mqtt.KindTelemetry,
		Message:   msgs.NewTelemetryUpdate(id, snapshot, telemetry.ChangeSetOf(telemetry.TagSpeed)),
	}
}

func TestVehicleApply(t *testing.T) {
	v := New("car-1")
	var buf bytes.Buffer
	v.PrintState(&buf)
	require.Equal(t, "No telemetry received\n", buf.String())

	require.True(t, v.Apply(telemetryEvent("car-2", 1, 10)).Empty())
	changes := v.Apply(telemetryEvent("car-1", 5, 42))
	require.Equal(t, telemetry.ChangeSetOf(telemetry.TagSpeed), changes)

	state, received, version := v.State()
	require.InDelta(t, 42, state.Speed, 1e-9)
	require.Equal(t, changes, received)
	require.EqualValues(t, 5, version)

	buf.Reset()
	v.PrintState(&buf)
	require.Contains(t, buf.String(), "42 km/h")

	v.Apply(telemetryEvent("car-1", 1, 3))
	_, _, version = v.State()
	require.EqualValues(t, 1, version)

	require.True(t, v.Online())
	v.Apply(mqtt.Event{VehicleID: "car-1", Kind: mqtt.KindMeta, Message: &msgs.VehicleInfo{VehicleID: "car-1"}})
	require.False(t, v.Online())
}

func TestVehiclePrintLink(t *testing.T) {
	v := New("car-1")
	v.Apply(mqtt.Event{VehicleID: "car-1", Message: &msgs.LinkStatus{Connected: true, Frames: 9, Rejected: 2, ChecksumErrors: 1}})
	v.Apply(mqtt.Event{VehicleID: "car-1", Message: &msgs.InputFault{Active: true, Consecutive: 4, SinceMs: 1}})
	var buf bytes.Buffer
	v.PrintLink(&buf)
	require.Contains(t, buf.String(), "link connected, 9 frames, 2 rejected (1 checksum)")
	require.Contains(t, buf.String(), "input fault: 4 consecutive timeouts")
}
