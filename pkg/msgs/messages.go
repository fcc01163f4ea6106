package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/evdash/pkg/ingest"
	"github.com/robotalks/evdash/pkg/input"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// TelemetryField is the value of one field.
type TelemetryField struct {
	Tag   uint32  `protobuf:"varint,1,opt,name=tag,proto3" json:"tag,omitempty"`
	Value float64 `protobuf:"fixed64,2,opt,name=value,proto3" json:"value,omitempty"`
	Text  string  `protobuf:"bytes,3,opt,name=text,proto3" json:"text,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *TelemetryField) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TelemetryField) Reset() { *m = TelemetryField{} }

// String implements proto.Message.
func (m *TelemetryField) String() string { return proto.CompactTextString(m) }

// TelemetryUpdate carries the fields changed since the previous update.
type TelemetryUpdate struct {
	VehicleID   string            `protobuf:"bytes,1,opt,name=vehicle_id,proto3" json:"vehicle_id,omitempty"`
	Version     uint64            `protobuf:"varint,2,opt,name=version,proto3" json:"version,omitempty"`
	TimestampMs int64             `protobuf:"varint,3,opt,name=timestamp_ms,proto3" json:"timestamp_ms,omitempty"`
	Fields      []*TelemetryField `protobuf:"bytes,4,rep,name=fields,proto3" json:"fields,omitempty"`
}

// TypeID implements Message.
func (m *TelemetryUpdate) TypeID() uint32 { return TelemetryUpdateTypeID }

// ProtoMessage implements proto.Message.
func (m *TelemetryUpdate) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TelemetryUpdate) Reset() { *m = TelemetryUpdate{} }

// String implements proto.Message.
func (m *TelemetryUpdate) String() string { return proto.CompactTextString(m) }

// NewTelemetryUpdate creates a TelemetryUpdate from the changed fields.
func NewTelemetryUpdate(vehicleID string, snapshot telemetry.Snapshot, changes telemetry.ChangeSet) *TelemetryUpdate {
	m := &TelemetryUpdate{
		VehicleID:   vehicleID,
		Version:     snapshot.Version,
		TimestampMs: toMillis(snapshot.Time),
		Fields:      make([]*TelemetryField, 0, changes.Len()),
	}
	changes.Each(func(tag telemetry.Tag) {
		m.Fields = append(m.Fields, &TelemetryField{
			Tag:   uint32(tag),
			Value: snapshot.State.Value(tag),
			Text:  snapshot.State.Format(tag),
		})
	})
	return m
}

// ApplyTo writes the carried fields into s and returns the tags written.
func (m *TelemetryUpdate) ApplyTo(s *telemetry.State) telemetry.ChangeSet {
	var u telemetry.Update
	for _, f := range m.Fields {
		if f == nil || f.Tag > 0xff {
			continue
		}
		tag := telemetry.Tag(f.Tag)
		if !tag.Known() {
			continue
		}
		setValue(&u.Values, tag, f.Value)
		u.Changes.Add(tag)
	}
	s.Apply(&u)
	return u.Changes
}

func setValue(s *telemetry.State, tag telemetry.Tag, v float64) {
	switch tag {
	case telemetry.TagBatteryTemp:
		s.BatteryTemp = v
	case telemetry.TagSpeed:
		s.Speed = v
	case telemetry.TagVoltage:
		s.Voltage = v
	case telemetry.TagCurrent:
		s.Current = v
	case telemetry.TagCharge:
		s.Charge = uint8(v)
	case telemetry.TagMode:
		s.Mode = telemetry.Mode(v)
	case telemetry.TagArmed:
		s.Armed = v != 0
	case telemetry.TagRange:
		s.Range = v
	case telemetry.TagConsumption:
		s.Consumption = v
	case telemetry.TagMotorTemp:
		s.MotorTemp = v
	case telemetry.TagTrip:
		s.Trip = v
	case telemetry.TagOdometer:
		s.Odometer = v
	case telemetry.TagAvgSpeed:
		s.AvgSpeed = v
	}
}

// LinkStatus reports the health of the serial link.
type LinkStatus struct {
	VehicleID      string `protobuf:"bytes,1,opt,name=vehicle_id,proto3" json:"vehicle_id,omitempty"`
	Connected      bool   `protobuf:"varint,2,opt,name=connected,proto3" json:"connected,omitempty"`
	Bytes          uint64 `protobuf:"varint,3,opt,name=bytes,proto3" json:"bytes,omitempty"`
	Frames         uint64 `protobuf:"varint,4,opt,name=frames,proto3" json:"frames,omitempty"`
	Rejected       uint64 `protobuf:"varint,5,opt,name=rejected,proto3" json:"rejected,omitempty"`
	ChecksumErrors uint64 `protobuf:"varint,6,opt,name=checksum_errors,proto3" json:"checksum_errors,omitempty"`
	Resets         uint64 `protobuf:"varint,7,opt,name=resets,proto3" json:"resets,omitempty"`
	Evicted        uint64 `protobuf:"varint,8,opt,name=evicted,proto3" json:"evicted,omitempty"`
	Updates        uint64 `protobuf:"varint,9,opt,name=updates,proto3" json:"updates,omitempty"`
	LockTimeouts   uint64 `protobuf:"varint,10,opt,name=lock_timeouts,proto3" json:"lock_timeouts,omitempty"`
	DecodeErrors   uint64 `protobuf:"varint,11,opt,name=decode_errors,proto3" json:"decode_errors,omitempty"`
	Opens          uint64 `protobuf:"varint,12,opt,name=opens,proto3" json:"opens,omitempty"`
	LastFrameMs    int64  `protobuf:"varint,13,opt,name=last_frame_ms,proto3" json:"last_frame_ms,omitempty"`
}

// TypeID implements Message.
func (m *LinkStatus) TypeID() uint32 { return LinkStatusTypeID }

// ProtoMessage implements proto.Message.
func (m *LinkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatus) Reset() { *m = LinkStatus{} }

// String implements proto.Message.
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }

// NewLinkStatus creates a LinkStatus from link stats.
func NewLinkStatus(vehicleID string, st ingest.Stats) *LinkStatus {
	return &LinkStatus{
		VehicleID:      vehicleID,
		Connected:      st.Connected,
		Bytes:          st.Wire.Bytes,
		Frames:         st.Wire.Frames,
		Rejected:       st.Wire.Rejected,
		ChecksumErrors: st.Wire.ChecksumErrors,
		Resets:         st.Wire.Resets,
		Evicted:        st.Wire.Evicted,
		Updates:        st.Updates,
		LockTimeouts:   st.LockTimeouts,
		DecodeErrors:   st.DecodeErrors,
		Opens:          st.Opens,
		LastFrameMs:    toMillis(st.LastFrame),
	}
}

// InputFault is raised when the touch input is unavailable and cleared
// on recovery.
type InputFault struct {
	VehicleID   string `protobuf:"bytes,1,opt,name=vehicle_id,proto3" json:"vehicle_id,omitempty"`
	Active      bool   `protobuf:"varint,2,opt,name=active,proto3" json:"active,omitempty"`
	Consecutive uint32 `protobuf:"varint,3,opt,name=consecutive,proto3" json:"consecutive,omitempty"`
	SinceMs     int64  `protobuf:"varint,4,opt,name=since_ms,proto3" json:"since_ms,omitempty"`
}

// TypeID implements Message.
func (m *InputFault) TypeID() uint32 { return InputFaultTypeID }

// ProtoMessage implements proto.Message.
func (m *InputFault) ProtoMessage() {}

// Reset implements proto.Message.
func (m *InputFault) Reset() { *m = InputFault{} }

// String implements proto.Message.
func (m *InputFault) String() string { return proto.CompactTextString(m) }

// NewInputFault creates an InputFault.
func NewInputFault(vehicleID string, f input.Fault) *InputFault {
	return &InputFault{
		VehicleID:   vehicleID,
		Active:      f.Active,
		Consecutive: uint32(f.Consecutive),
		SinceMs:     toMillis(f.Since),
	}
}

// VehicleInfo is the retained description of a publishing vehicle.
type VehicleInfo struct {
	VehicleID string `protobuf:"bytes,1,opt,name=vehicle_id,proto3" json:"vehicle_id,omitempty"`
	Online    bool   `protobuf:"varint,2,opt,name=online,proto3" json:"online,omitempty"`
	Source    string `protobuf:"bytes,3,opt,name=source,proto3" json:"source,omitempty"`
	Layout    string `protobuf:"bytes,4,opt,name=layout,proto3" json:"layout,omitempty"`
	StartedMs int64  `protobuf:"varint,5,opt,name=started_ms,proto3" json:"started_ms,omitempty"`
}

// TypeID implements Message.
func (m *VehicleInfo) TypeID() uint32 { return VehicleInfoTypeID }

// ProtoMessage implements proto.Message.
func (m *VehicleInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *VehicleInfo) Reset() { *m = VehicleInfo{} }

// String implements proto.Message.
func (m *VehicleInfo) String() string { return proto.CompactTextString(m) }

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano() / int64(time.Millisecond)
}

// FromMillis converts a millisecond timestamp.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}

// TypeID Groups
const (
	GroupTelemetry uint32 = 0x00010000
	GroupLink      uint32 = 0x00020000
	GroupInput     uint32 = 0x00030000
	GroupVehicle   uint32 = 0x00040000
)

// TypeIDs
const (
	TelemetryUpdateTypeID uint32 = GroupTelemetry | TypeIDKindEvent | 0x0000
	LinkStatusTypeID      uint32 = GroupLink | TypeIDKindState | 0x0000
	InputFaultTypeID      uint32 = GroupInput | TypeIDKindEvent | 0x0000
	VehicleInfoTypeID     uint32 = GroupVehicle | TypeIDKindState | 0x0000
)

func init() {
	MessageTypes[TelemetryUpdateTypeID] = func() Message { return &TelemetryUpdate{} }
	MessageTypes[LinkStatusTypeID] = func() Message { return &LinkStatus{} }
	MessageTypes[InputFaultTypeID] = func() Message { return &InputFault{} }
	MessageTypes[VehicleInfoTypeID] = func() Message { return &VehicleInfo{} }
}
