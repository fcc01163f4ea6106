package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/evdash/pkg/telemetry"
)

func TestServerStream(t *testing.T) {
	store := telemetry.NewStore()
	s := NewServer("", store)
	s.MinInterval = 0
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), "", ts.URL)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	var msg Message
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	require.Equal(t, ActionReset, msg.Action)
	require.Len(t, msg.Change.Fields, len(telemetry.Tags))

	u := &telemetry.Update{Changes: telemetry.ChangeSetOf(telemetry.TagCharge)}
	u.Values.Charge = 64
	require.NoError(t, store.Apply(u))

	msg = Message{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	require.Equal(t, ActionUpdate, msg.Action)
	require.EqualValues(t, 1, msg.Change.Version)
	require.Equal(t, map[string]interface{}{"charge": float64(64)}, msg.Change.Fields)
	require.Equal(t, 1, s.Clients())
}

func TestConfigNewServer(t *testing.T) {
	conf := NewConfig()
	require.Nil(t, conf.NewServer(telemetry.NewStore()))
	conf.Addr = ":0"
	conf.Path = "/ws"
	s := conf.NewServer(telemetry.NewStore())
	require.NotNil(t, s)
	require.Equal(t, "/ws", s.Path)
}
