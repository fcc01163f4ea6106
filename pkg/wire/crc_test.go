package wire

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// modbusCRC is the bit-serial form of the link checksum.
func modbusCRC(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestChecksum(t *testing.T) {
	testCases := []struct {
		name   string
		data   []byte
		expect uint16
	}{
		{"empty", nil, 0xFFFF},
		{"check string", []byte("123456789"), 0x4B37},
		{"modbus read request", []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, 0xCDC5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Checksum(tc.data))
			require.Equal(t, tc.expect, modbusCRC(tc.data))
		})
	}
}

func TestChecksumMatchesBitSerial(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for n := 0; n < 300; n++ {
		data := make([]byte, n)
		rnd.Read(data)
		require.Equalf(t, modbusCRC(data), Checksum(data), "len %d", n)
	}
}
