package sniffer

import (
	"encoding/binary"
)

// Frame markers of the binary telemetry output.
const (
	FrameField1 = 0x05
	FrameField2 = 0x06
)

// reversed nibbles, indexed by nibble value
var nibbleFlip = [16]byte{
	0x0, 0x8, 0x4, 0xC,
	0x2, 0xA, 0x6, 0xE,
	0x1, 0x9, 0x5, 0xD,
	0x3, 0xB, 0x7, 0xF,
}

// Flip reverses the bit order of b.
func Flip(b byte) byte {
	return nibbleFlip[b&0x0F]<<4 | nibbleFlip[b>>4]
}

// DecodeTelemetry unpacks the sensor value stored in pkt[off] and pkt[off+1].
//
// Both bytes are sent bit-reversed. The low byte carries bits 0-7 of the
// mantissa, the low five bits of the high byte carry bits 8-12 and its top
// three bits are a left shift applied to the result.
func DecodeTelemetry(pkt []byte, off int) uint32 {
	hi := Flip(pkt[off+1])
	raw := uint32(hi&0x1F)<<8 | uint32(Flip(pkt[off]))
	return raw << ((hi & 0xE0) >> 5)
}

const crc8Poly = 0xD8

// CRC8 computes the MSB-first CRC-8 of msg with polynomial 0xD8 and a zero
// initial remainder.
func CRC8(msg []byte) uint8 {
	var rem uint8
	for _, b := range msg {
		rem ^= b
		for i := 0; i < 8; i++ {
			if rem&0x80 != 0 {
				rem = rem<<1 ^ crc8Poly
			} else {
				rem <<= 1
			}
		}
	}
	return rem
}

// AppendFrame appends a telemetry frame: the marker followed by v in big-endian order.
func AppendFrame(dst []byte, marker byte, v uint32) []byte {
	dst = append(dst, marker)
	return binary.BigEndian.AppendUint32(dst, v)
}

// hexDigit returns the upper-case hex digit of the low nibble of n.
func hexDigit(n byte) byte {
	n &= 0x0F
	if n <= 9 {
		return '0' + n
	}
	return 'A' + n - 0x0A
}

// appendHyphenHex appends b as "XX-XX-..." without a trailing hyphen.
func appendHyphenHex(dst []byte, b []byte) []byte {
	for i, v := range b {
		if i > 0 {
			dst = append(dst, '-')
		}
		dst = append(dst, hexDigit(v>>4), hexDigit(v))
	}
	return dst
}
