package sim

import (
	"math/rand"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evdash/pkg/telemetry"
	"github.com/robotalks/evdash/pkg/wire"
)

// Fields sent in every frame, the rest go out every SlowEvery frames.
var (
	FastFields = telemetry.ChangeSetOf(
		telemetry.TagSpeed,
		telemetry.TagVoltage,
		telemetry.TagCurrent,
	)
	SlowFields = telemetry.ChangeSetOf(
		telemetry.TagBatteryTemp,
		telemetry.TagCharge,
		telemetry.TagMode,
		telemetry.TagArmed,
		telemetry.TagRange,
		telemetry.TagConsumption,
		telemetry.TagMotorTemp,
		telemetry.TagTrip,
		telemetry.TagOdometer,
		telemetry.TagAvgSpeed,
	)
)

// Noise is the probability per frame of each kind of line noise.
type Noise struct {
	// Garbage inserts random bytes before the frame.
	Garbage float64
	// FalseStart inserts a start marker pair with a bogus length.
	FalseStart float64
	// Corrupt flips a checksum bit so the frame is rejected.
	Corrupt float64
}

// Uniform sets every probability to p.
func Uniform(p float64) Noise {
	return Noise{Garbage: p, FalseStart: p, Corrupt: p}
}

// GeneratorStats counts what was generated.
type GeneratorStats struct {
	Frames      uint64
	Garbage     uint64
	FalseStarts uint64
	Corrupted   uint64
}

// Generator encodes the vehicle state into frames.
type Generator struct {
	Vehicle   *Vehicle
	Layout    telemetry.Layout
	Noise     Noise
	SlowEvery int

	rand  *rand.Rand
	stats GeneratorStats
}

// NewGenerator creates a Generator.
func NewGenerator(v *Vehicle, layout telemetry.Layout, seed int64) *Generator {
	return &Generator{
		Vehicle:   v,
		Layout:    layout,
		SlowEvery: 10,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

// Stats returns the generator counters.
func (g *Generator) Stats() GeneratorStats {
	return g.stats
}

// Next steps the vehicle to now and returns the bytes to transmit: a
// frame possibly surrounded by noise.
func (g *Generator) Next(now time.Time) ([]byte, error) {
	state := g.Vehicle.Step(now)
	fields := FastFields
	if g.SlowEvery <= 1 || g.stats.Frames%uint64(g.SlowEvery) == 0 {
		fields.Merge(SlowFields)
	}
	payload := telemetry.NewFields(g.Layout).
		PutState(&state, fields).
		Bytes(wire.MinPayloadLen)
	frame, err := wire.Encode(payload)
	if err != nil {
		return nil, err
	}
	g.stats.Frames++

	var out []byte
	if g.chance(g.Noise.Garbage) {
		out = append(out, g.garbage()...)
		g.stats.Garbage++
	}
	if g.chance(g.Noise.FalseStart) {
		out = append(out, wire.StartMarker1, wire.StartMarker2, 0x00, byte(16+g.rand.Intn(200)))
		g.stats.FalseStarts++
	}
	if g.chance(g.Noise.Corrupt) {
		frame[len(frame)-1] ^= 1 << uint(g.rand.Intn(8))
		g.stats.Corrupted++
	}
	out = append(out, frame...)
	glog.V(3).Infof("sim frame %d: % x", g.stats.Frames, out)
	return out, nil
}

func (g *Generator) chance(p float64) bool {
	return p > 0 && g.rand.Float64() < p
}

// garbage returns 1-8 random bytes which never contain a start marker
// pair so the noise doesn't swallow the following frame.
func (g *Generator) garbage() []byte {
	n := 1 + g.rand.Intn(8)
	out := make([]byte, n)
	for i := range out {
		b := byte(g.rand.Intn(256))
		if b == wire.StartMarker1 {
			b = 0
		}
		out[i] = b
	}
	return out
}
