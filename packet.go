package sniffer

import "fmt"

// PacketSize is the size of a captured packet buffer including the length
// byte and the two status bytes appended by the receiver.
const PacketSize = 21

// Fixed payload offsets of the observed link protocol.
const (
	seqOffset    = 11
	dataOffset   = 12
	field1Offset = 12
	field2Offset = 14
)

// RawPacket is a captured packet: [len][data...][rssi][lqi|crc].
type RawPacket [PacketSize]byte

// status returns the byte at offset len+i, or 0 when it lies past the buffer.
func status(p []byte, i int) byte {
	if len(p) == 0 {
		return 0
	}
	idx := int(p[0]) + i
	if idx >= len(p) {
		return 0
	}
	return p[idx]
}

// Len returns the length byte.
func (p *RawPacket) Len() uint8 { return p[0] }

// RSSI returns the raw signed RSSI byte appended by the receiver.
func (p *RawPacket) RSSI() int8 { return int8(status(p[:], 1)) }

// LQI returns the link quality indicator.
func (p *RawPacket) LQI() uint8 { return status(p[:], 2) & 0x7F }

// CRCOK reports whether the receiver flagged the packet as CRC-valid.
func (p *RawPacket) CRCOK() bool { return status(p[:], 2)&0x80 != 0 }

// Sequence returns the link-layer sequence field.
func (p *RawPacket) Sequence() uint8 { return p[seqOffset] }

// Payload4 returns the four payload bytes carrying the telemetry fields.
func (p *RawPacket) Payload4() [4]byte {
	return [4]byte(p[dataOffset : dataOffset+4])
}

// Reset zeroes the buffer.
func (p *RawPacket) Reset() { *p = RawPacket{} }

// RSSIdBm converts a raw RSSI byte to the calibrated dBm value shown in the trace.
func RSSIdBm(raw int8) int {
	return int(raw)/2 - 71
}

// CaptureStatus is the outcome of one capture attempt.
type CaptureStatus uint8

const (
	CaptureTimeout CaptureStatus = iota
	CaptureReceived
	CaptureCRCFailed
)

func (s CaptureStatus) String() string {
	switch s {
	case CaptureTimeout:
		return "timeout"
	case CaptureReceived:
		return "received"
	case CaptureCRCFailed:
		return "crc-failed"
	default:
		return "unknown"
	}
}

// CaptureResult describes a single WaitForPacket call.
type CaptureResult struct {
	Status  CaptureStatus
	Channel int
	// Packet holds the received bytes when Status is CaptureReceived.
	Packet RawPacket
	RSSI   int8
	LQI    uint8
	CRCOK  bool
}

func (r CaptureResult) String() string {
	if r.Status == CaptureTimeout {
		return fmt.Sprintf("channel %d: timeout", r.Channel)
	}
	return fmt.Sprintf("channel %d: %s RSSI=%d LQI=%d len=%d", r.Channel, r.Status, RSSIdBm(r.RSSI), r.LQI, r.Packet.Len())
}
