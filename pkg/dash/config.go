package dash

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/evdash/pkg/telemetry"
)

// Config defines how telemetry is presented.
type Config struct {
	Console     bool
	JSON        bool
	PollTimeout time.Duration
	Refresh     time.Duration
}

var defaultConfig = Config{
	Console:     true,
	PollTimeout: 10 * time.Millisecond,
	Refresh:     100 * time.Millisecond,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.Console, "console", defaultConfig.Console, "Print changed fields")
	flag.BoolVar(&defaultConfig.JSON, "json", defaultConfig.JSON, "Print changes as JSON lines")
	flag.DurationVar(&defaultConfig.PollTimeout, "poll-timeout", defaultConfig.PollTimeout, "Max wait on the telemetry state lock per refresh")
	flag.DurationVar(&defaultConfig.Refresh, "refresh", defaultConfig.Refresh, "Refresh interval of the presentation loop")
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

// NewAdapter creates an Adapter with the listeners enabled by the config.
func (c *Config) NewAdapter(store *telemetry.Store, listeners ...Listener) *Adapter {
	caster := &Caster{}
	if c.Console {
		caster.Add(&Console{Writer: os.Stdout})
	}
	if c.JSON {
		caster.Add(&JSONWriter{Writer: os.Stdout})
	}
	caster.Add(listeners...)
	a := NewAdapter(store, caster)
	a.PollTimeout = c.PollTimeout
	return a
}
