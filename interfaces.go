package sniffer

import (
	"context"
	"io"
	"time"
)

// Level represents the logical level of a pin (Low or High).
type Level bool

const (
	Low  Level = false
	High Level = true
)

// SPI represents a generic SPI connection.
type SPI interface {
	// Tx sends w and reads into r.
	// len(r) must be >= len(w).
	Tx(w, r []byte) error
}

// Pin is a GPIO output line.
type Pin interface {
	// Out sets the pin as output with the given level.
	Out(l Level) error
}

// Strobe is a single-byte command that moves the transceiver state machine.
type Strobe byte

const (
	StrobeReset   Strobe = 0x30 // SRES
	StrobeRX      Strobe = 0x34 // SRX
	StrobeIdle    Strobe = 0x36 // SIDLE
	StrobeFlushRX Strobe = 0x3A // SFRX
)

// MarcStateIdle is the MARCSTATE value reported once the radio is idle.
const MarcStateIdle = 0x01

// Radio is the register-level view of the receiver used by the tuner, the
// capture loop and the formatter.
type Radio interface {
	// Strobe issues a command strobe.
	Strobe(s Strobe) error
	// MarcState reads the main radio control state machine register.
	MarcState() (byte, error)
	// SetFreqOffset writes the frequency offset register (FSCTRL0).
	SetFreqOffset(v uint8) error
	// SetChannel writes the channel number register (CHANNR).
	SetChannel(ch uint8) error
	// Channel returns the current channel number register.
	Channel() uint8
	// FreqEstimate returns the frequency error estimate of the last packet (FREQEST).
	FreqEstimate() int8
}

// RxQueue is the receive queue the capture loop polls.
// The buffer returned by Current is owned by the queue until Done is called.
type RxQueue interface {
	// Current returns the packet at the head of the queue, or nil.
	// The layout is [len][data...][rssi][lqi|crc].
	Current() []byte
	// CRCPassed reports whether the current packet passed the CRC check.
	CRCPassed() bool
	// RSSI returns the raw RSSI of the current packet.
	RSSI() int8
	// LQI returns the link quality of the current packet.
	LQI() uint8
	// Done releases the current packet.
	Done()
}

// Transport carries the human-readable trace.
type Transport interface {
	io.Writer
	// Service must be called often to keep the transport moving.
	Service() error
	// Ready reports whether a host is attached.
	Ready() bool
}

// FrameSink carries the binary telemetry frames.
type FrameSink interface {
	io.Writer
	Enable() error
	// Disable blocks until pending bytes are sent.
	Disable() error
}

// Power suspends the sniffer between scan cycles.
type Power interface {
	Sleep(ctx context.Context, ticks uint16) error
}

// Indicator drives the three status lights.
type Indicator interface {
	SetActivity(on bool)
	SetStatus(on bool)
	SetFault(on bool)
}

// Clock is the millisecond time base.
type Clock interface {
	// Millis returns the milliseconds since boot. It wraps like a 32-bit counter.
	Millis() uint32
	Sleep(d time.Duration)
}
