//go:build !tinygo

package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type fakePorter struct {
	written []byte
	events  []string
}

func (p *fakePorter) Write(b []byte) (int, error) {
	p.written = append(p.written, b...)
	p.events = append(p.events, "write")
	return len(b), nil
}

func (p *fakePorter) Drain() error {
	p.events = append(p.events, "drain")
	return nil
}

func (p *fakePorter) SetRTS(rts bool) error {
	if rts {
		p.events = append(p.events, "rts+")
	} else {
		p.events = append(p.events, "rts-")
	}
	return nil
}

func (p *fakePorter) Close() error {
	p.events = append(p.events, "close")
	return nil
}

func TestSerialMode(t *testing.T) {
	mode, err := SerialOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{BaudRate: 115200, DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.NoParity}, mode)

	mode, err = SerialOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "odd"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{BaudRate: 9600, DataBits: 7, StopBits: serial.TwoStopBits, Parity: serial.OddParity}, mode)

	_, err = SerialOptions{Parity: "space"}.SerialMode()
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSerialPortFrameHandshake(t *testing.T) {
	port := &fakePorter{}
	sp := &SerialPort{port: port, name: "/dev/ttyS0"}
	ind := &fakeIndicator{}
	f := NewFormatter(nil, sp, &fakeRadio{}, &fakeClock{}, ind, false)

	f.TestNumber()

	assert.Equal(t, []string{"rts+", "write", "drain", "rts-"}, port.events)
	assert.Equal(t, []byte{0x06, 0, 0, 0, 0}, port.written)
	assert.Equal(t, "serial(/dev/ttyS0)", sp.String())
}

func TestSerialPortConsole(t *testing.T) {
	port := &fakePorter{}
	c := NewConsole(&SerialPort{port: port})

	_, err := c.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	assert.Empty(t, port.written, "buffered until serviced")

	require.NoError(t, c.Service())
	assert.Equal(t, "hello\r\n", string(port.written))
	assert.True(t, c.Ready())
}

func TestOpenSerialMissingPort(t *testing.T) {
	_, err := OpenSerial(SerialOptions{Port: "/dev/does-not-exist-sniffer"})
	assert.ErrorIs(t, err, ErrPkg)
}
