// Package sim simulates an EV emitting telemetry frames over the link.
package sim

import (
	"math"
	"time"

	"github.com/robotalks/evdash/pkg/telemetry"
)

// Battery pack parameters.
const (
	CellsVoltageEmpty = 20.0
	CellsVoltageFull  = 25.2
	// InternalResistance is the sag in volts per ampere.
	InternalResistance = 0.01
	// AuxPower is drawn while standing still, in watts.
	AuxPower = 60.0
)

// modeParams are the per mode acceleration (km/h per second) and base
// consumption (Wh/km).
var modeParams = map[telemetry.Mode]struct {
	accel, consumption float64
}{
	telemetry.ModeEco:   {accel: 1.5, consumption: 18},
	telemetry.ModeCity:  {accel: 2.5, consumption: 22},
	telemetry.ModeSport: {accel: 4, consumption: 28},
}

// Vehicle is a simple model of the EV producing telemetry.
type Vehicle struct {
	Driver     Driver
	CapacityWh float64

	state    telemetry.State
	last     time.Time
	usedWh   float64
	tripKm   float64
	movingS  float64
	startSoC float64
}

// NewVehicle creates a Vehicle starting from the boot defaults with a
// full battery.
func NewVehicle(profile []Segment) *Vehicle {
	v := &Vehicle{
		Driver:     Driver{Profile: profile},
		CapacityWh: 1500,
		state:      telemetry.DefaultState(),
	}
	v.state.Charge = 100
	v.state.Trip = 0
	v.state.Speed = 0
	v.startSoC = 100
	v.state.Voltage = voltageAt(100, 0)
	return v
}

// State returns the current state.
func (v *Vehicle) State() telemetry.State {
	return v.state
}

// SetMode changes the drive mode.
func (v *Vehicle) SetMode(mode telemetry.Mode) {
	if mode.Valid() {
		v.state.Mode = mode
	}
}

// Step advances the model to now.
func (v *Vehicle) Step(now time.Time) telemetry.State {
	if v.last.IsZero() {
		v.last = now
	}
	dt := now.Sub(v.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	v.last = now
	params := modeParams[v.state.Mode]

	prevSpeed := v.state.Speed
	speed := v.Driver.Speed(now, params.accel)
	distKm := (prevSpeed + speed) / 2 * dt / 3600
	v.tripKm += distKm
	v.state.Trip += distKm
	v.state.Odometer += distKm
	if speed > 0 {
		v.movingS += dt
	}
	if v.movingS > 0 {
		v.state.AvgSpeed = v.tripKm / (v.movingS / 3600)
	}

	// Wh/km grows with speed, decelerating recovers energy.
	consumption := params.consumption + 0.1*speed
	power := AuxPower + consumption*speed
	if dt > 0 && speed < prevSpeed {
		power -= (prevSpeed - speed) / dt * 40
	}
	v.usedWh += power * dt / 3600
	if v.usedWh < 0 {
		v.usedWh = 0
	}

	charge := v.startSoC - v.usedWh/v.CapacityWh*100
	charge = math.Max(0, math.Min(100, charge))
	current := power / voltageAt(charge, 0)
	v.state.Speed = speed
	v.state.Charge = uint8(math.Round(charge))
	v.state.Current = current
	v.state.Voltage = voltageAt(charge, current)
	if v.tripKm > 0 {
		v.state.Consumption = v.usedWh / v.tripKm
	} else {
		v.state.Consumption = consumption
	}
	v.state.Range = charge / 100 * v.CapacityWh / v.state.Consumption

	// First order lag towards the load dependent temperature.
	lag := 1 - math.Exp(-dt/60)
	v.state.MotorTemp += (20 + speed*0.6 - v.state.MotorTemp) * lag
	v.state.BatteryTemp += (15 + math.Abs(current)*0.2 - v.state.BatteryTemp) * lag
	return v.state
}

func voltageAt(charge, current float64) float64 {
	return CellsVoltageEmpty + (CellsVoltageFull-CellsVoltageEmpty)*charge/100 - current*InternalResistance
}
