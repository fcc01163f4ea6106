package wire

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum computes CRC-16/Modbus (init 0xFFFF, reflected poly 0xA001).
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
