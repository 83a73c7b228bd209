//go:build tinygo

package sniffer

import (
	"machine"
)

// tinygoPin wraps a machine.Pin to satisfy the Pin interface.
type tinygoPin struct {
	pin machine.Pin
}

func (p *tinygoPin) Out(l Level) error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Set(bool(l))
	return nil
}

func wrapPin(p machine.Pin) Pin {
	if p == machine.NoPin {
		return nil
	}
	return &tinygoPin{pin: p}
}

// tinygoSPI wraps a machine.SPI to satisfy the SPI interface.
type tinygoSPI struct {
	spi *machine.SPI
	cs  machine.Pin
}

func (s *tinygoSPI) Tx(w, r []byte) error {
	s.cs.Low()
	err := s.spi.Tx(w, r)
	s.cs.High()
	return err
}

// uartFrames sends telemetry frames on a UART, asserting RTS (active low)
// while a frame is in flight. Writes block until the bytes are in the
// transmit register, so there is nothing left to drain.
type uartFrames struct {
	uart *machine.UART
	rts  machine.Pin
}

func (u *uartFrames) Write(p []byte) (int, error) { return u.uart.Write(p) }

func (u *uartFrames) Enable() error {
	if u.rts != machine.NoPin {
		u.rts.Low()
	}
	return nil
}

func (u *uartFrames) Disable() error {
	if u.rts != machine.NoPin {
		u.rts.High()
	}
	return nil
}

// serialConsole forwards the trace to machine.Serial (USB CDC).
type serialConsole struct{}

func (serialConsole) Write(p []byte) (int, error) { return machine.Serial.Write(p) }
func (serialConsole) Service() error              { return nil }
func (serialConsole) Ready() bool                 { return true }

// TinyGoPins lists the board wiring.
type TinyGoPins struct {
	CS       machine.Pin
	Activity machine.Pin
	Status   machine.Pin
	Fault    machine.Pin
	// RTS is the flow control line of the frame UART, or machine.NoPin.
	RTS machine.Pin
}

// NewTinyGo opens the transceiver on spi and the outputs selected by c.
// uart is only used in uart transport mode.
func NewTinyGo(c Config, spi *machine.SPI, uart *machine.UART, pins TinyGoPins) (*Hardware, error) {
	// Configure CS pin as output and set high (inactive)
	pins.CS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pins.CS.High()

	dev, err := NewDevice(&tinygoSPI{spi: spi, cs: pins.CS}, nil)
	if err != nil {
		return nil, err
	}

	hw := &Hardware{
		Radio:     dev,
		Queue:     dev,
		Clock:     NewSystemClock(),
		Indicator: NewPinIndicator(wrapPin(pins.Activity), wrapPin(pins.Status), wrapPin(pins.Fault)),
	}
	hw.closers = append(hw.closers, dev)

	if c.Transport == TransportUART {
		opts, err := c.Serial.Normalize()
		if err != nil {
			return nil, err
		}
		uart.Configure(machine.UARTConfig{BaudRate: uint32(opts.BaudRate)})
		if pins.RTS != machine.NoPin {
			pins.RTS.Configure(machine.PinConfig{Mode: machine.PinOutput})
			pins.RTS.High()
		}
		hw.Frames = &uartFrames{uart: uart, rts: pins.RTS}
	} else {
		hw.Console = serialConsole{}
	}
	return hw, nil
}
