package uart

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestConfig(t *testing.T) {
	conf := NewConfig()
	conf.Port = "/dev/ttyUSB3"
	conf.Baud = 57600
	name, err := conf.Resolve()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB3", name)

	mode := conf.Mode()
	require.Equal(t, 57600, mode.BaudRate)
	require.Equal(t, 8, mode.DataBits)
	require.Equal(t, serial.NoParity, mode.Parity)
	require.Equal(t, serial.OneStopBit, mode.StopBits)
}

func TestPortString(t *testing.T) {
	require.Equal(t, "/dev/ttyS0", Port{Name: "/dev/ttyS0"}.String())
	require.Equal(t, "/dev/ttyACM0 [2341:0043] Uno",
		Port{Name: "/dev/ttyACM0", USB: true, VID: "2341", PID: "0043", Product: "Uno"}.String())
}
