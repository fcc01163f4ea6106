package wire

import (
	"encoding/binary"
	"errors"
)

// Frame markers.
const (
	StartMarker1 byte = 0x5D
	StartMarker2 byte = 0x47
	EndMarker    byte = 0x78
)

// Frame geometry.
const (
	// FrameOverhead is the number of bytes a frame adds to the declared length:
	// two start markers, the length field and the checksum.
	FrameOverhead = 6
	// MinFrameLen is the shortest frame accepted.
	MinFrameLen = 15
	// WindowSize is the capacity of the reassembly window, which also
	// bounds the longest frame that can be received.
	WindowSize = 256

	// MinPayloadLen is the shortest payload Encode accepts.
	MinPayloadLen = MinFrameLen - FrameOverhead - 1
	// MaxPayloadLen is the longest payload Encode accepts.
	MaxPayloadLen = WindowSize - FrameOverhead - 1

	lengthOffset  = 2
	payloadOffset = 4
)

var (
	// ErrFrameShort indicates a candidate below MinFrameLen.
	ErrFrameShort = errors.New("frame too short")
	// ErrStartMarker indicates the candidate doesn't begin with the start markers.
	ErrStartMarker = errors.New("start marker mismatch")
	// ErrLengthMismatch indicates the declared length disagrees with the candidate length.
	ErrLengthMismatch = errors.New("declared length mismatch")
	// ErrEndMarker indicates the end marker is missing.
	ErrEndMarker = errors.New("end marker mismatch")
	// ErrChecksum indicates the CRC doesn't match.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrPayloadTooShort is returned by Encode for payloads below MinPayloadLen.
	ErrPayloadTooShort = errors.New("payload too short")
	// ErrPayloadTooLong is returned by Encode for payloads above MaxPayloadLen.
	ErrPayloadTooLong = errors.New("payload too long")
)

// Frame is a validated frame. It usually aliases the reassembly window
// and is only valid during the FrameHandler call.
type Frame []byte

// DeclaredLength returns the length field.
func (f Frame) DeclaredLength() int {
	return int(binary.BigEndian.Uint16(f[lengthOffset:]))
}

// Payload returns the bytes between the length field and the end marker.
func (f Frame) Payload() []byte {
	return f[payloadOffset : payloadOffset+f.DeclaredLength()-1]
}

// Checksum returns the received checksum.
func (f Frame) Checksum() uint16 {
	return binary.BigEndian.Uint16(f[len(f)-2:])
}

// Validate checks a candidate frame, the slice length being the
// candidate length.
func Validate(frame []byte) bool {
	return Check(frame) == nil
}

// Check is Validate reporting the first failed check.
func Check(frame []byte) error {
	n := len(frame)
	if n < MinFrameLen {
		return ErrFrameShort
	}
	if frame[0] != StartMarker1 || frame[1] != StartMarker2 {
		return ErrStartMarker
	}
	declared := int(binary.BigEndian.Uint16(frame[lengthOffset:]))
	if declared+FrameOverhead != n {
		return ErrLengthMismatch
	}
	if frame[payloadOffset+declared-1] != EndMarker {
		return ErrEndMarker
	}
	if Checksum(frame[lengthOffset:lengthOffset+declared+2]) != binary.BigEndian.Uint16(frame[n-2:]) {
		return ErrChecksum
	}
	return nil
}

// Encode builds a frame around payload.
func Encode(payload []byte) (Frame, error) {
	if len(payload) < MinPayloadLen {
		return nil, ErrPayloadTooShort
	}
	if len(payload) > MaxPayloadLen {
		return nil, ErrPayloadTooLong
	}
	declared := len(payload) + 1
	f := make(Frame, declared+FrameOverhead)
	f[0], f[1] = StartMarker1, StartMarker2
	binary.BigEndian.PutUint16(f[lengthOffset:], uint16(declared))
	copy(f[payloadOffset:], payload)
	f[payloadOffset+len(payload)] = EndMarker
	binary.BigEndian.PutUint16(f[len(f)-2:], Checksum(f[lengthOffset:lengthOffset+declared+2]))
	return f, nil
}
