package sim

import (
	"flag"
	"fmt"
	"time"

	"github.com/robotalks/evdash/pkg/telemetry"
)

// Config defines the simulated vehicle.
type Config struct {
	Interval  time.Duration
	Mode      string
	Noise     float64
	Seed      int64
	ChunkSize int
}

var defaultConfig = Config{
	Interval: 50 * time.Millisecond,
	Mode:     telemetry.ModeSport.String(),
	Seed:     1,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.Interval, "sim-interval", defaultConfig.Interval, "Interval between simulated frames")
	flag.StringVar(&defaultConfig.Mode, "sim-mode", defaultConfig.Mode, "Drive mode of the simulated vehicle: Eco, City, Sport")
	flag.Float64Var(&defaultConfig.Noise, "sim-noise", defaultConfig.Noise, "Probability per frame of each kind of line noise")
	flag.Int64Var(&defaultConfig.Seed, "sim-seed", defaultConfig.Seed, "Random seed of the noise")
	flag.IntVar(&defaultConfig.ChunkSize, "sim-chunk", defaultConfig.ChunkSize, "Split writes into chunks of this size")
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

// NewSim creates a Sim emitting frames with layout.
func (c *Config) NewSim(layout telemetry.Layout) (*Sim, error) {
	mode, ok := telemetry.ParseMode(c.Mode)
	if !ok {
		return nil, fmt.Errorf("invalid mode %q", c.Mode)
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("invalid interval %v", c.Interval)
	}
	v := NewVehicle(DefaultProfile)
	v.SetMode(mode)
	g := NewGenerator(v, layout, c.Seed)
	g.Noise = Uniform(c.Noise)
	return &Sim{Generator: g, Interval: c.Interval, ChunkSize: c.ChunkSize}, nil
}
