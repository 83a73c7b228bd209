package sniffer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// selfTestPacket is a reference telemetry payload with known decodes.
var selfTestPacket = []byte{0x0E, 0x1D, 0x3F, 0x19}

// SelfTest writes the decoder reference values followed by a CRC-8 table of
// 0xFFFFFFFF halved 32 times, one value per line:
//
//	200192	102336
//	4294967295	FF-FF-FF-FF-<crc>
func SelfTest(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d\t%d\r\n",
		DecodeTelemetry(selfTestPacket, 0), DecodeTelemetry(selfTestPacket, 2)); err != nil {
		return err
	}

	var b [4]byte
	line := make([]byte, 0, 48)
	for t, i := uint32(0xFFFFFFFF), 0; i < 32; t, i = t/2, i+1 {
		binary.BigEndian.PutUint32(b[:], t)
		line = fmt.Appendf(line[:0], "%d\t", t)
		for _, v := range b {
			line = append(line, hexDigit(v>>4), hexDigit(v), '-')
		}
		line = fmt.Appendf(line, "%d \r\n", CRC8(b[:]))
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
