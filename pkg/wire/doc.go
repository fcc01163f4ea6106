// Package wire implements the telemetry link framing.
//
// The BMS/VCU controller streams frames over a receive-only UART link:
//
//	0x5D 0x47 | L (uint16 BE) | payload (L-1 bytes) | 0x78 | CRC-16/Modbus (BE)
//
// The checksum covers the length field, the payload and the end marker.
// There is no acknowledgement, so the receiver has to resynchronize on its
// own: the Reassembler keeps a bounded window of raw bytes and extracts
// every frame that validates, skipping noise one byte at a time.
package wire
