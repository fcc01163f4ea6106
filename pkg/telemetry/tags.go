package telemetry

import "fmt"

// Tag identifies a telemetry field inside a frame payload.
type Tag uint8

// TagPad fills unused payload bytes and carries no value.
const TagPad Tag = 0x00

// Known tags.
const (
	TagBatteryTemp Tag = 0x80
	TagSpeed       Tag = 0x82
	TagVoltage     Tag = 0x83
	TagCurrent     Tag = 0x84
	TagCharge      Tag = 0x85
	TagMode        Tag = 0x86
	TagArmed       Tag = 0x87
	TagRange       Tag = 0x88
	TagConsumption Tag = 0x89
	TagMotorTemp   Tag = 0x8A
	TagTrip        Tag = 0x8B
	TagOdometer    Tag = 0x8C
	TagAvgSpeed    Tag = 0x8D
)

// Tags lists known tags in wire order.
var Tags = []Tag{
	TagBatteryTemp,
	TagSpeed,
	TagVoltage,
	TagCurrent,
	TagCharge,
	TagMode,
	TagArmed,
	TagRange,
	TagConsumption,
	TagMotorTemp,
	TagTrip,
	TagOdometer,
	TagAvgSpeed,
}

type tagInfo struct {
	name  string
	label string
	width int
	scale float64
}

var tagInfos = map[Tag]tagInfo{
	TagBatteryTemp: {"battery_temp", "battery", 2, 0.1},
	TagSpeed:       {"speed", "speed", 2, 0.1},
	TagVoltage:     {"voltage", "voltage", 2, 0.01},
	TagCurrent:     {"current", "current", 2, 0.01},
	TagCharge:      {"charge", "charge", 1, 1},
	TagMode:        {"mode", "mode", 1, 1},
	TagArmed:       {"armed", "armed", 1, 1},
	TagRange:       {"range", "range", 2, 0.1},
	TagConsumption: {"consumption", "avg W/km", 2, 0.1},
	TagMotorTemp:   {"motor_temp", "motor", 2, 0.1},
	TagTrip:        {"trip", "trip", 2, 0.1},
	TagOdometer:    {"odometer", "odo", 4, 0.1},
	TagAvgSpeed:    {"avg_speed", "avg km/h", 2, 0.1},
}

// Known returns true if the tag is decoded.
func (t Tag) Known() bool {
	_, ok := tagInfos[t]
	return ok
}

// Width returns the number of value bytes following the tag.
// Unknown tags with the high bit set carry 2 bytes, others 1 byte.
func (t Tag) Width() int {
	if info, ok := tagInfos[t]; ok {
		return info.width
	}
	if t == TagPad {
		return 0
	}
	if t&0x80 != 0 {
		return 2
	}
	return 1
}

// Scale returns the factor applied to the raw value.
func (t Tag) Scale() float64 {
	if info, ok := tagInfos[t]; ok {
		return info.scale
	}
	return 1
}

// Name returns the field name used in serialized output.
func (t Tag) Name() string {
	if info, ok := tagInfos[t]; ok {
		return info.name
	}
	return fmt.Sprintf("tag_%02x", uint8(t))
}

// Label returns the dashboard label of the field.
func (t Tag) Label() string {
	if info, ok := tagInfos[t]; ok {
		return info.label
	}
	return t.Name()
}

// String implements fmt.Stringer.
func (t Tag) String() string {
	return fmt.Sprintf("%s(0x%02x)", t.Name(), uint8(t))
}

// ParseTag finds a known tag by name.
func ParseTag(name string) (Tag, bool) {
	for tag, info := range tagInfos {
		if info.name == name {
			return tag, true
		}
	}
	return 0, false
}
