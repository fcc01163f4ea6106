package dash

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/telemetry"
)

type testControlContext struct{}

func (testControlContext) Context() context.Context { return context.Background() }
func (testControlContext) Time() time.Time          { return time.Now() }
func (testControlContext) PriorityLevel() int       { return fx.PrLvRender }
func (testControlContext) TriggerNext()             {}

type notification struct {
	snapshot telemetry.Snapshot
	changes  telemetry.ChangeSet
}

func recorder() (Listener, chan notification) {
	ch := make(chan notification, 16)
	return ListenerFunc(func(cc fx.ControlContext, snapshot telemetry.Snapshot, changes telemetry.ChangeSet) {
		ch <- notification{snapshot: snapshot, changes: changes}
	}), ch
}

func chargeUpdate(charge uint8) *telemetry.Update {
	u := &telemetry.Update{Changes: telemetry.ChangeSetOf(telemetry.TagCharge)}
	u.Values.Charge = charge
	return u
}

func TestAdapterControl(t *testing.T) {
	store := telemetry.NewStore()
	l, ch := recorder()
	a := NewAdapter(store, l)
	cc := testControlContext{}

	require.NoError(t, a.Control(cc))
	n := <-ch
	require.Equal(t, telemetry.ChangeSetOf(telemetry.Tags...), n.changes)

	require.NoError(t, a.Control(cc))
	require.Empty(t, ch)

	require.NoError(t, store.Apply(chargeUpdate(70)))
	require.NoError(t, store.Apply(chargeUpdate(71)))
	require.NoError(t, a.Control(cc))
	n = <-ch
	require.Equal(t, telemetry.ChangeSetOf(telemetry.TagCharge), n.changes)
	require.EqualValues(t, 71, n.snapshot.State.Charge)
	require.EqualValues(t, 2, n.snapshot.Version)
}

func TestAdapterSkipsOnLockTimeout(t *testing.T) {
	store := telemetry.NewStore()
	l, ch := recorder()
	a := NewAdapter(store, l)
	a.PollTimeout = time.Millisecond

	held, release, done := make(chan struct{}), make(chan struct{}), make(chan struct{})
	go func() {
		store.View(time.Second, func(*telemetry.State) {
			close(held)
			<-release
		})
		close(done)
	}()
	<-held
	require.NoError(t, a.Control(testControlContext{}))
	require.EqualValues(t, 1, a.Skipped())
	require.Empty(t, ch)
	close(release)
	<-done

	require.NoError(t, a.Control(testControlContext{}))
	require.Len(t, ch, 1)
}

func TestAdapterInLoop(t *testing.T) {
	store := telemetry.NewStore()
	l, ch := recorder()
	loop := fx.NewLoop()
	loop.Interval = time.Hour
	loop.Add(NewAdapter(store, l))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
	}()

	expect := func() notification {
		select {
		case n := <-ch:
			return n
		case <-time.After(time.Second):
			t.Fatal("no notification")
		}
		return notification{}
	}
	expect()
	require.NoError(t, store.Apply(chargeUpdate(33)))
	n := expect()
	require.EqualValues(t, 33, n.snapshot.State.Charge)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{Writer: &buf}
	snapshot := telemetry.Snapshot{State: telemetry.DefaultState()}
	c.TelemetryChanged(testControlContext{}, snapshot, telemetry.ChangeSetOf(telemetry.TagCharge, telemetry.TagMode))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	require.Contains(t, string(lines[0]), "SoC: 25%")
	require.Contains(t, string(lines[1]), "Mode: Sport")
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONWriter{Writer: &buf}
	snapshot := telemetry.Snapshot{Version: 7, State: telemetry.DefaultState()}
	w.TelemetryChanged(testControlContext{}, snapshot,
		telemetry.ChangeSetOf(telemetry.TagCharge, telemetry.TagMode, telemetry.TagArmed, telemetry.TagVoltage))

	var decoded struct {
		Version uint64                 `json:"version"`
		Fields  map[string]interface{} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.EqualValues(t, 7, decoded.Version)
	require.Equal(t, map[string]interface{}{
		"charge":  float64(25),
		"mode":    "Sport",
		"armed":   true,
		"voltage": float64(23),
	}, decoded.Fields)
}
