// Package uart opens the telemetry serial port.
package uart

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// AutoPort selects the first USB serial port.
const AutoPort = "auto"

// ErrNoPort indicates auto detection found nothing.
var ErrNoPort = errors.New("no USB serial port found")

// Config defines the serial link options. The link is 8N1.
type Config struct {
	Port string
	Baud int
	// VIDs restricts auto detection to these USB vendor ids, comma separated.
	VIDs string
}

var defaultConfig = Config{
	Port: AutoPort,
	Baud: 115200,
}

func init() {
	if val := os.Getenv("EVDASH_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, auto for detection")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate")
	flag.StringVar(&defaultConfig.VIDs, "vids", defaultConfig.VIDs, "USB vendor ids accepted by auto detection, comma separated")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Mode returns the serial mode.
func (c *Config) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: c.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Resolve returns the port name, detecting it when configured as auto.
func (c *Config) Resolve() (string, error) {
	if c.Port != "" && c.Port != AutoPort {
		return c.Port, nil
	}
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerate ports: %w", err)
	}
	vids := make(map[string]bool)
	for _, vid := range strings.Split(c.VIDs, ",") {
		if vid = strings.TrimSpace(vid); vid != "" {
			vids[strings.ToUpper(vid)] = true
		}
	}
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if len(vids) == 0 || vids[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return "", ErrNoPort
}

// OpenPort opens the port.
func (c *Config) OpenPort() (serial.Port, error) {
	name, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, c.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	glog.Infof("serial %s opened at %d baud", name, c.Baud)
	return port, nil
}

// Open implements ingest.Source.
func (c *Config) Open(ctx context.Context) (io.ReadCloser, error) {
	return c.OpenPort()
}

// Port describes a serial port found on the system.
type Port struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Product string
}

// String implements fmt.Stringer.
func (p Port) String() string {
	if !p.USB {
		return p.Name
	}
	return fmt.Sprintf("%s [%s:%s] %s", p.Name, p.VID, p.PID, p.Product)
}

// List enumerates serial ports.
func List() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]Port, 0, len(details))
	for _, d := range details {
		ports = append(ports, Port{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
		})
	}
	return ports, nil
}
