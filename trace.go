package sniffer

import (
	"fmt"
	"strconv"
)

// Formatter renders the packet trace and the binary telemetry frames.
//
// A trace line looks like this (columns are fixed width):
//
//	123456 	! R: -50 L: 104 O: 253 C: 100 s:  17 0E-1D-3F-19	200192 	204672
//
// Fields: ms since boot, '!' when the CRC failed, RSSI in dBm, LQI,
// raw frequency estimate register, channel register, sequence byte, four payload bytes,
// first telemetry field and second telemetry field (doubled).
type Formatter struct {
	console   Transport
	frames    FrameSink
	radio     Radio
	clock     Clock
	indicator Indicator
	verbose   bool

	buf     []byte
	testNum uint32
}

// NewFormatter returns a formatter. console or frames may be nil to disable
// the text or the binary output respectively.
func NewFormatter(console Transport, frames FrameSink, radio Radio, clock Clock, ind Indicator, verbose bool) *Formatter {
	if ind == nil {
		ind = nopIndicator{}
	}
	return &Formatter{
		console:   console,
		frames:    frames,
		radio:     radio,
		clock:     clock,
		indicator: ind,
		verbose:   verbose,
		buf:       make([]byte, 0, 128),
	}
}

// Verbose reports whether verbose tracing is switched on.
func (f *Formatter) Verbose() bool {
	return f.verbose
}

func (f *Formatter) text() bool {
	return f.verbose && f.console != nil
}

// Event writes a diagnostic line terminated by CRLF.
func (f *Formatter) Event(format string, args ...any) {
	if !f.text() {
		return
	}
	b := fmt.Appendf(f.buf[:0], format, args...)
	b = append(b, '\r', '\n')
	f.write(b)
}

// Packet emits the trace line for p and, when a frame sink is configured,
// the two telemetry frames.
func (f *Formatter) Packet(p []byte) {
	var rp RawPacket
	copy(rp[:], p)

	field1 := DecodeTelemetry(rp[:], field1Offset)
	field2 := DecodeTelemetry(rp[:], field2Offset) * 2

	if f.text() {
		lqi := status(p, 2)
		b := strconv.AppendUint(f.buf[:0], uint64(f.clock.Millis()), 10)
		b = append(b, ' ', '\t')
		if lqi&0x80 != 0 {
			b = append(b, ' ')
		} else {
			b = append(b, '!')
		}
		b = append(b, ' ')
		b = fmt.Appendf(b, "R:%4d L:%4d O:%4d C:%4d s:%4d ",
			RSSIdBm(int8(status(p, 1))),
			lqi&0x7F,
			uint8(f.radio.FreqEstimate()),
			f.radio.Channel(),
			rp[seqOffset],
		)
		payload := rp.Payload4()
		b = appendHyphenHex(b, payload[:])
		b = fmt.Appendf(b, "\t%d \t%d\r\n", field1, field2)
		f.write(b)
	}

	if f.frames != nil {
		frame := make([]byte, 0, 10)
		frame = AppendFrame(frame, FrameField1, field1)
		frame = AppendFrame(frame, FrameField2, field2)
		f.sendFrames(frame)
	}
}

// TestNumber sends an incrementing counter as a field 2 frame. It is used to
// check the binary link without a radio.
func (f *Formatter) TestNumber() {
	if f.frames == nil {
		return
	}
	f.sendFrames(AppendFrame(nil, FrameField2, f.testNum))
	f.testNum++
}

func (f *Formatter) sendFrames(frame []byte) {
	if err := f.frames.Enable(); err != nil {
		globalLogger.Warn("frame sink enable: " + err.Error())
	}
	if _, err := f.frames.Write(frame); err != nil {
		globalLogger.Warn("frame sink write: " + err.Error())
	}
	f.indicator.SetFault(true)
	if err := f.frames.Disable(); err != nil {
		globalLogger.Warn("frame sink disable: " + err.Error())
	}
	f.indicator.SetFault(false)
}

func (f *Formatter) write(b []byte) {
	f.buf = b[:0]
	if _, err := f.console.Write(b); err != nil {
		globalLogger.Warn("trace write: " + err.Error())
	}
}
