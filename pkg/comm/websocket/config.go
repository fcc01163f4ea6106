package websocket

import (
	"flag"
	"time"

	"github.com/robotalks/evdash/pkg/telemetry"
)

// Config defines the websocket endpoint.
type Config struct {
	Addr        string
	Path        string
	PollTimeout time.Duration
	MinInterval time.Duration
}

var defaultConfig = Config{
	Path:        "/telemetry",
	PollTimeout: 10 * time.Millisecond,
	MinInterval: 50 * time.Millisecond,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Addr, "ws", defaultConfig.Addr, "Websocket listen address, e.g. :8080, empty to disable")
	flag.StringVar(&defaultConfig.Path, "ws-path", defaultConfig.Path, "Websocket endpoint path")
	flag.DurationVar(&defaultConfig.MinInterval, "ws-interval", defaultConfig.MinInterval, "Min interval between updates to a client")
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

// NewServer creates a Server, or nil if disabled.
func (c *Config) NewServer(store *telemetry.Store) *Server {
	if c.Addr == "" {
		return nil
	}
	s := NewServer(c.Addr, store)
	s.Path = c.Path
	s.PollTimeout = c.PollTimeout
	s.MinInterval = c.MinInterval
	return s
}
