//go:build !tinygo

package sniffer

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialMode converts the options into the mode go.bug.st/serial opens a port with.
func (o SerialOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// serialPorter is the part of serial.Port the sniffer uses.
type serialPorter interface {
	Write(p []byte) (int, error)
	Drain() error
	SetRTS(rts bool) error
	Close() error
}

// SerialPort is a serial line usable both as a text Transport and as a
// FrameSink. As a frame sink it raises RTS while a frame is written and
// drains the output before releasing it.
type SerialPort struct {
	port serialPorter
	name string
}

// OpenSerial opens the port described by opts.
func OpenSerial(opts SerialOptions) (*SerialPort, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(opts.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPkg, opts.Port, err)
	}
	return &SerialPort{port: p, name: opts.Port}, nil
}

func (s *SerialPort) Write(p []byte) (int, error) { return s.port.Write(p) }

// Service is a no-op: writes go straight to the driver.
func (s *SerialPort) Service() error { return nil }

func (s *SerialPort) Ready() bool { return true }

func (s *SerialPort) Enable() error {
	return s.port.SetRTS(true)
}

func (s *SerialPort) Disable() error {
	if err := s.port.Drain(); err != nil {
		return err
	}
	return s.port.SetRTS(false)
}

func (s *SerialPort) Close() error { return s.port.Close() }

func (s *SerialPort) String() string { return "serial(" + s.name + ")" }
