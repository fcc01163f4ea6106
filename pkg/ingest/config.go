package ingest

import (
	"flag"
	"fmt"
	"time"

	"github.com/robotalks/evdash/pkg/telemetry"
	"github.com/robotalks/evdash/pkg/wire"
)

// Config defines the options of the link.
type Config struct {
	// Layout is the payload layout: "default" or "controller".
	Layout         string
	ReadSize       int
	RetryInterval  time.Duration
	LockTimeout    time.Duration
	ResetThreshold int
	// KeepIncomplete spares a frame in flight from the reset.
	KeepIncomplete bool
	// ReportInterval is the interval of stats summaries, 0 disables.
	ReportInterval time.Duration
}

var defaultConfig = Config{
	Layout:         "default",
	ReadSize:       64,
	RetryInterval:  time.Second,
	LockTimeout:    telemetry.DefaultLockTimeout,
	ResetThreshold: wire.DefaultResetThreshold,
	ReportInterval: time.Minute,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Layout, "layout", defaultConfig.Layout, "Payload layout: default or controller")
	flag.IntVar(&defaultConfig.ReadSize, "read-size", defaultConfig.ReadSize, "Max bytes per read from the link")
	flag.DurationVar(&defaultConfig.RetryInterval, "retry", defaultConfig.RetryInterval, "Interval to reopen the link after failure, 0 to exit")
	flag.DurationVar(&defaultConfig.LockTimeout, "lock-timeout", defaultConfig.LockTimeout, "Max wait on the telemetry state lock")
	flag.DurationVar(&defaultConfig.ReportInterval, "report", defaultConfig.ReportInterval, "Interval of link stats summaries, 0 disables")
	flag.IntVar(&defaultConfig.ResetThreshold, "reset-threshold", defaultConfig.ResetThreshold, "Discard unresolved bytes above this fill level, 0 disables")
	flag.BoolVar(&defaultConfig.KeepIncomplete, "keep-incomplete", defaultConfig.KeepIncomplete, "Don't discard a partially received frame on reset")
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

// ParseLayout maps a layout name.
func ParseLayout(name string) (telemetry.Layout, error) {
	switch name {
	case "", "default":
		return telemetry.DefaultLayout, nil
	case "controller":
		return telemetry.ControllerLayout, nil
	}
	return telemetry.Layout{}, fmt.Errorf("unknown layout %q", name)
}

// NewLink creates a Link using the config. The store lock timeout is
// configured as well.
func (c *Config) NewLink(src Source, store *telemetry.Store) (*Link, error) {
	layout, err := ParseLayout(c.Layout)
	if err != nil {
		return nil, err
	}
	store.LockTimeout = c.LockTimeout
	l := NewLink(src, store)
	l.Decoder.Layout = layout
	l.ReadSize = c.ReadSize
	l.RetryInterval = c.RetryInterval
	l.reassembler.ResetThreshold = c.ResetThreshold
	l.reassembler.KeepIncomplete = c.KeepIncomplete
	return l, nil
}

// NewReporter creates a Reporter for the link, or nil if disabled.
func (c *Config) NewReporter(l *Link) *Reporter {
	if c.ReportInterval <= 0 {
		return nil
	}
	return &Reporter{Link: l, Interval: c.ReportInterval}
}
