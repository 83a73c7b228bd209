//go:build !tinygo

package sniffer

import (
	"fmt"
	"io"
	"os"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// realPin wraps a gpio.PinIO to satisfy the Pin interface.
type realPin struct {
	gpio.PinIO
}

func (p *realPin) Out(l Level) error {
	if l == High {
		return p.PinIO.Out(gpio.High)
	}
	return p.PinIO.Out(gpio.Low)
}

// openPin looks a pin up by name. An empty name returns a nil Pin.
func openPin(name string) (Pin, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: unknown GPIO %q", ErrConfig, name)
	}
	return &realPin{PinIO: p}, nil
}

// OpenPeriph initializes the host drivers and opens the transceiver, the
// indicator lights and the output described by c.
func OpenPeriph(c Config) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	hw := &Hardware{Clock: NewSystemClock()}

	port, err := spireg.Open(c.Radio.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port: %w", err)
	}
	hw.closers = append(hw.closers, port)

	conn, err := port.Connect(physic.Frequency(c.Radio.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("failed to connect to SPI device: %w", err)
	}

	dev, err := NewDevice(conn, nil)
	if err != nil {
		hw.Close()
		return nil, err
	}
	hw.Radio, hw.Queue = dev, dev
	// The radio must be powered down before the bus is released.
	hw.closers = append([]io.Closer{dev}, hw.closers...)

	var pins [3]Pin
	for i, name := range []string{c.LEDs.Activity, c.LEDs.Status, c.LEDs.Fault} {
		if pins[i], err = openPin(name); err != nil {
			hw.Close()
			return nil, err
		}
	}
	hw.Indicator = NewPinIndicator(pins[0], pins[1], pins[2])

	if err := openOutput(c, hw); err != nil {
		hw.Close()
		return nil, err
	}

	globalLogger.Info(fmt.Sprintf("Hardware ready: %s on %s", dev, port))
	return hw, nil
}

// openOutput attaches the console or the frame sink. Without a serial port
// the text trace goes to stdout.
func openOutput(c Config, hw *Hardware) error {
	if c.Serial.Port == "" {
		if c.Transport == TransportUART {
			return fmt.Errorf("%w: uart transport needs a serial port", ErrConfig)
		}
		hw.Console = NewConsole(os.Stdout)
		return nil
	}

	sp, err := OpenSerial(c.Serial)
	if err != nil {
		return err
	}
	hw.closers = append([]io.Closer{sp}, hw.closers...)
	if c.Transport == TransportUART {
		hw.Frames = sp
	} else {
		hw.Console = NewConsole(sp)
	}
	return nil
}
