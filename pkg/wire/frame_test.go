package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func chargeFramePayload() []byte {
	return []byte{0x85, 0x50, 0, 0, 0, 0, 0, 0}
}

func TestEncode(t *testing.T) {
	f, err := Encode(chargeFramePayload())
	require.NoError(t, err)
	require.Len(t, f, MinFrameLen)
	require.Equal(t, []byte{0x5D, 0x47, 0x00, 0x09, 0x85, 0x50}, []byte(f[:6]))
	require.Equal(t, EndMarker, f[12])
	require.Equal(t, modbusCRC(f[2:13]), f.Checksum())
	require.Equal(t, 9, f.DeclaredLength())
	require.Equal(t, chargeFramePayload(), f.Payload())
	require.True(t, Validate(f))

	_, err = Encode(make([]byte, MinPayloadLen-1))
	require.Equal(t, ErrPayloadTooShort, err)
	_, err = Encode(make([]byte, MaxPayloadLen+1))
	require.Equal(t, ErrPayloadTooLong, err)
	f, err = Encode(make([]byte, MaxPayloadLen))
	require.NoError(t, err)
	require.Len(t, f, WindowSize)
}

func TestCheck(t *testing.T) {
	valid, err := Encode(chargeFramePayload())
	require.NoError(t, err)
	mutate := func(fn func(f []byte) []byte) []byte {
		f := append([]byte(nil), valid...)
		return fn(f)
	}

	testCases := []struct {
		name   string
		frame  []byte
		expect error
	}{
		{"valid", valid, nil},
		{"short", valid[:MinFrameLen-1], ErrFrameShort},
		{"first marker", mutate(func(f []byte) []byte { f[0] = 0x5E; return f }), ErrStartMarker},
		{"second marker", mutate(func(f []byte) []byte { f[1] = 0x48; return f }), ErrStartMarker},
		{"declared too long", mutate(func(f []byte) []byte { f[3] = 0x0A; return f }), ErrLengthMismatch},
		{"declared too short", mutate(func(f []byte) []byte { f[3] = 0x08; return f }), ErrLengthMismatch},
		{"over-long candidate", append(append([]byte(nil), valid...), 0), ErrLengthMismatch},
		{"end marker", mutate(func(f []byte) []byte { f[12] = 0x79; return f }), ErrEndMarker},
		{"payload corrupted", mutate(func(f []byte) []byte { f[5] = 0x51; return f }), ErrChecksum},
		{"checksum corrupted", mutate(func(f []byte) []byte { f[14] ^= 1; return f }), ErrChecksum},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Check(tc.frame))
			require.Equal(t, tc.expect == nil, Validate(tc.frame))
		})
	}
}
