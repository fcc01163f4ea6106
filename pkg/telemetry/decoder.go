package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// Layout locates the tagged fields inside a frame payload.
type Layout struct {
	// HeaderLen is the number of payload bytes before the first tag.
	HeaderLen int
	// TrailerLen is the number of payload bytes after the last field.
	TrailerLen int
}

var (
	// DefaultLayout has fields span the whole payload.
	DefaultLayout = Layout{}
	// ControllerLayout is emitted by the BMS controller firmware: a 7 byte
	// sub-header and a 4 byte sub-trailer around the fields.
	ControllerLayout = Layout{HeaderLen: 7, TrailerLen: 4}
)

var (
	// ErrFieldTruncated indicates a field runs past the end of the field area.
	ErrFieldTruncated = errors.New("field truncated")
)

// Decoder decodes tagged fields from frame payloads.
type Decoder struct {
	Layout Layout
}

// NewDecoder creates a Decoder.
func NewDecoder(layout Layout) *Decoder {
	return &Decoder{Layout: layout}
}

// Decode decodes payload into u. Fields are added to u in payload order,
// a later occurrence of the same tag overwrites the earlier one.
// When a field is truncated, the fields before it are kept in u and
// ErrFieldTruncated is returned.
func (d *Decoder) Decode(payload []byte, u *Update) error {
	start, end := d.Layout.HeaderLen, len(payload)-d.Layout.TrailerLen
	if start >= end {
		return nil
	}
	fields := payload[start:end]
	for pos := 0; pos < len(fields); {
		tag := Tag(fields[pos])
		width := tag.Width()
		pos++
		if pos+width > len(fields) {
			glog.V(2).Infof("field %s truncated at %d", tag, start+pos-1)
			return ErrFieldTruncated
		}
		decodeField(tag, fields[pos:pos+width], u)
		pos += width
	}
	return nil
}

func decodeField(tag Tag, val []byte, u *Update) {
	v := &u.Values
	switch tag {
	case TagBatteryTemp:
		v.BatteryTemp = scaled16(tag, val)
	case TagSpeed:
		v.Speed = scaled16(tag, val)
	case TagVoltage:
		v.Voltage = scaled16(tag, val)
	case TagCurrent:
		v.Current = DecodeCurrent(binary.BigEndian.Uint16(val))
	case TagCharge:
		charge := val[0]
		if charge > 100 {
			glog.V(1).Infof("charge %d out of range, clamped", charge)
			charge = 100
		}
		v.Charge = charge
	case TagMode:
		mode := Mode(val[0])
		if !mode.Valid() {
			glog.V(1).Infof("mode %d unknown, ignored", val[0])
			return
		}
		v.Mode = mode
	case TagArmed:
		v.Armed = val[0] != 0
	case TagRange:
		v.Range = scaled16(tag, val)
	case TagConsumption:
		v.Consumption = scaled16(tag, val)
	case TagMotorTemp:
		v.MotorTemp = scaled16(tag, val)
	case TagTrip:
		v.Trip = scaled16(tag, val)
	case TagOdometer:
		v.Odometer = float64(binary.BigEndian.Uint32(val)) * tag.Scale()
	case TagAvgSpeed:
		v.AvgSpeed = scaled16(tag, val)
	case TagPad:
		return
	default:
		glog.V(1).Infof("unknown tag 0x%02x skipped (%d bytes)", uint8(tag), len(val))
		return
	}
	u.Changes.Add(tag)
}

func scaled16(tag Tag, val []byte) float64 {
	return float64(binary.BigEndian.Uint16(val)) * tag.Scale()
}

// DecodeCurrent converts a sign-magnitude raw current to amperes.
func DecodeCurrent(raw uint16) float64 {
	amps := float64(raw&0x7fff) * TagCurrent.Scale()
	if raw&0x8000 != 0 {
		return -amps
	}
	return amps
}

// EncodeCurrent converts amperes to the sign-magnitude raw value.
func EncodeCurrent(amps float64) uint16 {
	var sign uint16
	if amps < 0 {
		sign, amps = 0x8000, -amps
	}
	mag := round(amps / TagCurrent.Scale())
	if mag > 0x7fff {
		mag = 0x7fff
	}
	return sign | uint16(mag)
}

func round(v float64) float64 {
	if v < 0 {
		return float64(int64(v - 0.5))
	}
	return float64(int64(v + 0.5))
}

// Fields builds a payload of tagged fields.
type Fields struct {
	Layout Layout
	buf    []byte
}

// NewFields creates a Fields builder.
func NewFields(layout Layout) *Fields {
	return &Fields{Layout: layout, buf: make([]byte, layout.HeaderLen)}
}

// Put8 appends a 1 byte field.
func (f *Fields) Put8(tag Tag, v uint8) *Fields {
	f.buf = append(f.buf, byte(tag), v)
	return f
}

// Put16 appends a 2 byte field.
func (f *Fields) Put16(tag Tag, v uint16) *Fields {
	f.buf = append(f.buf, byte(tag), byte(v>>8), byte(v))
	return f
}

// Put32 appends a 4 byte field.
func (f *Fields) Put32(tag Tag, v uint32) *Fields {
	f.buf = append(f.buf, byte(tag))
	f.buf = binary.BigEndian.AppendUint32(f.buf, v)
	return f
}

// PutScaled appends a known field from its semantic value.
func (f *Fields) PutScaled(tag Tag, v float64) *Fields {
	switch {
	case tag == TagCurrent:
		return f.Put16(tag, EncodeCurrent(v))
	case tag.Width() == 1:
		return f.Put8(tag, uint8(clampRaw(v, 0xff)))
	case tag.Width() == 4:
		return f.Put32(tag, uint32(clampRaw(v/tag.Scale(), 0xffffffff)))
	}
	return f.Put16(tag, uint16(clampRaw(v/tag.Scale(), 0xffff)))
}

// clampRaw rounds v into [0, max].
func clampRaw(v, max float64) float64 {
	v = round(v)
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// PutState appends the fields of s listed in changes.
func (f *Fields) PutState(s *State, changes ChangeSet) *Fields {
	changes.Each(func(tag Tag) {
		f.PutScaled(tag, s.Value(tag))
	})
	return f
}

// Len returns the number of bytes including the layout header.
func (f *Fields) Len() int {
	return len(f.buf)
}

// Bytes returns the payload including the layout trailer, zero padded
// to at least minLen bytes. Zero bytes decode as TagPad.
func (f *Fields) Bytes(minLen int) []byte {
	payload := append([]byte(nil), f.buf...)
	payload = append(payload, make([]byte, f.Layout.TrailerLen)...)
	if pad := minLen - len(payload); pad > 0 {
		payload = append(payload, make([]byte, pad)...)
	}
	return payload
}

// String implements fmt.Stringer.
func (f *Fields) String() string {
	return fmt.Sprintf("% x", f.buf)
}
