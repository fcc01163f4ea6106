package telemetry

import (
	"fmt"
	"strings"
)

// Mode is the driving mode.
type Mode uint8

// Driving modes.
const (
	ModeEco Mode = iota
	ModeCity
	ModeSport
)

// Valid returns true for a known mode.
func (m Mode) Valid() bool {
	return m <= ModeSport
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeEco:
		return "Eco"
	case ModeCity:
		return "City"
	case ModeSport:
		return "Sport"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses a mode name, case insensitive.
func ParseMode(s string) (Mode, bool) {
	for m := ModeEco; m <= ModeSport; m++ {
		if strings.EqualFold(m.String(), s) {
			return m, true
		}
	}
	return 0, false
}

// State holds the latest known value of every field.
type State struct {
	BatteryTemp float64 `json:"battery_temp"`
	Speed       float64 `json:"speed"`
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Charge      uint8   `json:"charge"`
	Mode        Mode    `json:"mode"`
	Armed       bool    `json:"armed"`
	Range       float64 `json:"range"`
	Consumption float64 `json:"consumption"`
	MotorTemp   float64 `json:"motor_temp"`
	Trip        float64 `json:"trip"`
	Odometer    float64 `json:"odometer"`
	AvgSpeed    float64 `json:"avg_speed"`
}

// DefaultState returns the values shown before any frame arrives.
func DefaultState() State {
	return State{
		BatteryTemp: 10,
		Speed:       0,
		Voltage:     23,
		Current:     0,
		Charge:      25,
		Mode:        ModeSport,
		Armed:       true,
		Range:       10,
		Consumption: 30,
		MotorTemp:   20,
		Trip:        110,
		Odometer:    10,
		AvgSpeed:    10,
	}
}

// Value returns the field of tag as a number.
// Booleans are 0 or 1, unknown tags are 0.
func (s *State) Value(tag Tag) float64 {
	switch tag {
	case TagBatteryTemp:
		return s.BatteryTemp
	case TagSpeed:
		return s.Speed
	case TagVoltage:
		return s.Voltage
	case TagCurrent:
		return s.Current
	case TagCharge:
		return float64(s.Charge)
	case TagMode:
		return float64(s.Mode)
	case TagArmed:
		if s.Armed {
			return 1
		}
		return 0
	case TagRange:
		return s.Range
	case TagConsumption:
		return s.Consumption
	case TagMotorTemp:
		return s.MotorTemp
	case TagTrip:
		return s.Trip
	case TagOdometer:
		return s.Odometer
	case TagAvgSpeed:
		return s.AvgSpeed
	}
	return 0
}

// ArmedText returns the armed status label.
func (s *State) ArmedText() string {
	if s.Armed {
		return "ARMED"
	}
	return "DISARMED"
}

// Format returns the dashboard label text of the field.
func (s *State) Format(tag Tag) string {
	switch tag {
	case TagBatteryTemp:
		return fmt.Sprintf("Battery: %d°C", int(s.BatteryTemp))
	case TagSpeed:
		return fmt.Sprintf("%d km/h", int(s.Speed))
	case TagVoltage:
		return fmt.Sprintf("Volt: %.2f V", s.Voltage)
	case TagCurrent:
		return fmt.Sprintf("Current: %.2f A", s.Current)
	case TagCharge:
		return fmt.Sprintf("SoC: %d%%", s.Charge)
	case TagMode:
		return "Mode: " + s.Mode.String()
	case TagArmed:
		return s.ArmedText()
	case TagRange:
		return fmt.Sprintf("Range: %d km", int(s.Range))
	case TagConsumption:
		return fmt.Sprintf("Avg. con: %d W/km", int(s.Consumption))
	case TagMotorTemp:
		return fmt.Sprintf("Motor: %d°C", int(s.MotorTemp))
	case TagTrip:
		return fmt.Sprintf("TRIP %d km", int(s.Trip))
	case TagOdometer:
		return fmt.Sprintf("ODO %d km", int(s.Odometer))
	case TagAvgSpeed:
		return fmt.Sprintf("AVG. %d km/h", int(s.AvgSpeed))
	}
	return tag.Name()
}

// Apply copies the fields present in u.
func (s *State) Apply(u *Update) {
	u.Changes.Each(func(tag Tag) {
		u.Values.copyField(s, tag)
	})
}

func (s *State) copyField(dst *State, tag Tag) {
	switch tag {
	case TagBatteryTemp:
		dst.BatteryTemp = s.BatteryTemp
	case TagSpeed:
		dst.Speed = s.Speed
	case TagVoltage:
		dst.Voltage = s.Voltage
	case TagCurrent:
		dst.Current = s.Current
	case TagCharge:
		dst.Charge = s.Charge
	case TagMode:
		dst.Mode = s.Mode
	case TagArmed:
		dst.Armed = s.Armed
	case TagRange:
		dst.Range = s.Range
	case TagConsumption:
		dst.Consumption = s.Consumption
	case TagMotorTemp:
		dst.MotorTemp = s.MotorTemp
	case TagTrip:
		dst.Trip = s.Trip
	case TagOdometer:
		dst.Odometer = s.Odometer
	case TagAvgSpeed:
		dst.AvgSpeed = s.AvgSpeed
	}
}
