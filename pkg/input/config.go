package input

import (
	"flag"
	"time"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/input/device"
)

// Config defines the touch input options.
type Config struct {
	Enabled bool
	// Device is the evdev node, empty to detect by DeviceMatch.
	Device        string
	DeviceMatch   string
	Timeout       time.Duration
	EscalateAfter int
	// RotateWidth rotates the panel onto a screen of this width, 0 disables.
	RotateWidth   int
	RetryInterval time.Duration
	Verbose       bool
}

var defaultConfig = Config{
	DeviceMatch:   "touch",
	Timeout:       DefaultTimeout,
	RotateWidth:   480,
	RetryInterval: time.Second,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.Enabled, "touch", defaultConfig.Enabled, "Read the touch panel")
	flag.StringVar(&defaultConfig.Device, "touch-device", defaultConfig.Device, "Touch evdev node, empty for auto detection")
	flag.StringVar(&defaultConfig.DeviceMatch, "touch-match", defaultConfig.DeviceMatch, "Name substring used to detect the touch device")
	flag.DurationVar(&defaultConfig.Timeout, "touch-timeout", defaultConfig.Timeout, "Max wait on the input lock")
	flag.IntVar(&defaultConfig.EscalateAfter, "touch-escalate", defaultConfig.EscalateAfter, "Consecutive input lock timeouts raising a fault, 0 disables")
	flag.IntVar(&defaultConfig.RotateWidth, "touch-rotate", defaultConfig.RotateWidth, "Screen width for rotating touch points, 0 disables")
	flag.BoolVar(&defaultConfig.Verbose, "touch-verbose", defaultConfig.Verbose, "Log touch reports")
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

// NewGuard creates a Guard using the config.
func (c *Config) NewGuard(notifier FaultNotifier) *Guard {
	g := NewGuard()
	g.Timeout = c.Timeout
	g.EscalateAfter = c.EscalateAfter
	g.Notifier = notifier
	return g
}

// Opener returns the device opener selected by the config.
func (c *Config) Opener() Opener {
	if c.Device != "" {
		path := c.Device
		return func() (device.Device, error) { return device.Open(path) }
	}
	match := c.DeviceMatch
	return func() (device.Device, error) { return device.DetectAndOpen(match) }
}

// Input bundles the reader and the sampler sharing one Guard.
type Input struct {
	Guard   *Guard
	Reader  *Reader
	Sampler *Sampler
}

// New creates the input path. handler receives touch states on the loop.
func (c *Config) New(handler Handler, notifier FaultNotifier) *Input {
	g := c.NewGuard(notifier)
	in := &Input{
		Guard: g,
		Reader: &Reader{
			Open:          c.Opener(),
			Guard:         g,
			RetryInterval: c.RetryInterval,
			Verbose:       c.Verbose,
		},
		Sampler: &Sampler{Guard: g, Handler: handler},
	}
	if c.RotateWidth > 0 {
		in.Reader.Transform = Rotate90(c.RotateWidth)
	}
	return in
}

// AddToLoop implements LoopAdder.
func (in *Input) AddToLoop(l *fx.Loop) {
	l.AddRunnable(in.Reader)
	l.Add(in.Sampler)
}
