package sniffer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSPIConn struct {
	tx      []byte
	calls   [][]byte
	rxQueue [][]byte // Queue of responses to return for subsequent Tx calls
	err     error
}

func (m *mockSPIConn) Tx(w, r []byte) error {
	m.tx = append(m.tx, w...)
	m.calls = append(m.calls, append([]byte(nil), w...))
	if m.err != nil {
		return m.err
	}

	for i := range r {
		r[i] = 0
	}
	if len(m.rxQueue) > 0 {
		// Pop the next response
		next := m.rxQueue[0]
		m.rxQueue = m.rxQueue[1:]
		copy(r, next)
	}
	return nil
}

func (m *mockSPIConn) queueRx(data ...byte) {
	m.rxQueue = append(m.rxQueue, data)
}

func (m *mockSPIConn) reset() {
	m.tx, m.calls, m.rxQueue = nil, nil, nil
}

// queueInit queues the responses NewDevice expects from a healthy chip.
func (m *mockSPIConn) queueInit() {
	m.queueRx(0)       // SRES
	m.queueRx(0, 0x80) // PARTNUM
	m.queueRx(0, 0x03) // VERSION
	for i := 0; i < 6; i++ {
		m.queueRx(0, 0)
	}
	m.queueRx(0, 0x05) // PKTCTRL0 read back
}

func newTestDevice(t *testing.T) (*Device, *mockSPIConn) {
	t.Helper()
	spi := &mockSPIConn{}
	spi.queueInit()
	dev, err := NewDevice(spi, nil)
	require.NoError(t, err)
	spi.reset()
	return dev, spi
}

func TestNewDeviceConfigures(t *testing.T) {
	spi := &mockSPIConn{}
	spi.queueInit()

	dev, err := NewDevice(spi, nil)
	require.NoError(t, err)

	want := [][]byte{
		{0x30},
		{0x30 | 0xC0, 0},
		{0x31 | 0xC0, 0},
		{_PKTCTRL1, 0x04},
		{_PKTCTRL0, 0x05},
		{_PKTLEN, 18},
		{_IOCFG0, 0x06},
		{_MCSM1, 0x00},
		{_MCSM0, 0x14},
		{_PKTCTRL0 | 0x80, 0},
	}
	if diff := cmp.Diff(want, spi.calls); diff != "" {
		t.Errorf("init sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "CC25xx(Channel=0)", dev.String())
}

func TestNewDeviceExtraRegisters(t *testing.T) {
	spi := &mockSPIConn{}
	spi.queueRx(0)
	spi.queueRx(0, 0x80)
	spi.queueRx(0, 0x03)
	for i := 0; i < 7; i++ {
		spi.queueRx(0, 0)
	}
	spi.queueRx(0, 0x05)

	_, err := NewDevice(spi, map[byte]byte{0x0D: 0x5D})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(spi.tx, []byte{0x0D, 0x5D}), "extra register not written: % X", spi.tx)
}

func TestNewDeviceNoChip(t *testing.T) {
	spi := &mockSPIConn{}

	_, err := NewDevice(spi, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPkg))
	assert.Contains(t, err.Error(), "check wiring/power")
}

func TestNewDeviceBusError(t *testing.T) {
	spi := &mockSPIConn{err: errors.New("spi down")}

	_, err := NewDevice(spi, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spi down")
}

func TestDeviceTuning(t *testing.T) {
	dev, spi := newTestDevice(t)

	require.NoError(t, dev.SetFreqOffset(0xCE))
	require.NoError(t, dev.SetChannel(199))
	require.NoError(t, dev.Strobe(StrobeRX))

	want := [][]byte{{_FSCTRL0, 0xCE}, {_CHANNR, 199}, {0x34}}
	if diff := cmp.Diff(want, spi.calls); diff != "" {
		t.Errorf("tuning mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint8(199), dev.Channel())
}

func TestDeviceStatusRegisters(t *testing.T) {
	dev, spi := newTestDevice(t)

	spi.queueRx(0, 0x21) // MARCSTATE with chip status bits set
	state, err := dev.MarcState()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), state)

	spi.queueRx(0, 0xFD)
	assert.Equal(t, int8(-3), dev.FreqEstimate())

	assert.Equal(t, []byte{_MARCSTATE | 0xC0, 0}, spi.calls[0])
	assert.Equal(t, []byte{_FREQEST | 0xC0, 0}, spi.calls[1])
}

func TestDeviceCurrentAndDone(t *testing.T) {
	dev, spi := newTestDevice(t)
	pkt := makePacket(17, testPayload, -100, 104, true)

	spi.queueRx(0, byte(len(pkt))) // RXBYTES
	spi.queueRx(0, MarcStateIdle)  // MARCSTATE
	spi.queueRx(append([]byte{0}, pkt...)...)

	got := dev.Current()
	require.Equal(t, pkt, got)
	assert.Equal(t, byte(_FIFO|0xC0), spi.calls[2][0])
	assert.Len(t, spi.calls[2], len(pkt)+1)

	assert.True(t, dev.CRCPassed())
	assert.Equal(t, int8(-100), dev.RSSI())
	assert.Equal(t, uint8(104), dev.LQI())

	// Held until released.
	calls := len(spi.calls)
	assert.Equal(t, pkt, dev.Current())
	assert.Len(t, spi.calls, calls)

	dev.Done()
	want := [][]byte{{0x36}, {0x3A}, {0x34}}
	if diff := cmp.Diff(want, spi.calls[calls:]); diff != "" {
		t.Errorf("restart mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, dev.CRCPassed())
}

func TestDeviceCurrentEmpty(t *testing.T) {
	dev, spi := newTestDevice(t)

	spi.queueRx(0, 0) // RXBYTES
	assert.Nil(t, dev.Current())
	assert.Len(t, spi.calls, 1)
}

func TestDeviceCurrentStillReceiving(t *testing.T) {
	dev, spi := newTestDevice(t)

	spi.queueRx(0, 10)
	spi.queueRx(0, 0x0D) // RX
	assert.Nil(t, dev.Current())
	assert.Len(t, spi.calls, 2, "FIFO must not be read mid-packet")
}

func TestDeviceCurrentOverflow(t *testing.T) {
	dev, spi := newTestDevice(t)

	spi.queueRx(0, 0x80|12)
	assert.Nil(t, dev.Current())

	want := [][]byte{{_RXBYTES | 0xC0, 0}, {0x36}, {0x3A}, {0x34}}
	if diff := cmp.Diff(want, spi.calls); diff != "" {
		t.Errorf("overflow recovery mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceCurrentMalformedLength(t *testing.T) {
	dev, spi := newTestDevice(t)

	spi.queueRx(0, 6)
	spi.queueRx(0, MarcStateIdle)
	spi.queueRx(0, 40, 1, 2, 3, 4, 5) // length byte larger than the FIFO content
	assert.Nil(t, dev.Current())

	assert.Equal(t, [][]byte{{0x36}, {0x3A}, {0x34}}, spi.calls[3:])
}

func TestDeviceClose(t *testing.T) {
	dev, spi := newTestDevice(t)

	require.NoError(t, dev.Close())
	assert.Equal(t, [][]byte{{0x36}, {_SPWD}}, spi.calls)
}

func TestDeviceDoneBusError(t *testing.T) {
	dev, spi := newTestDevice(t)
	logs := captureLogs(t)
	spi.err = errors.New("spi down")

	dev.Done()

	assert.Equal(t, [][]byte{{0x36}}, spi.calls, "restart stops at the first failed strobe")
	require.Len(t, logs.lines, 1)
	assert.Equal(t, "WARN restart RX: strobe 0x36: spi down", logs.lines[0])
}

func TestDeviceOverflowBusError(t *testing.T) {
	dev, spi := newTestDevice(t)
	logs := captureLogs(t)
	spi.queueRx(0, 0x80|12)
	// RXBYTES succeeds, then the bus drops during recovery.
	dev.conn = &failAfterSPI{SPI: spi, ok: 1}

	assert.Nil(t, dev.Current())
	assert.Contains(t, logs.lines, "WARN RX FIFO overflow")
	assert.Contains(t, logs.lines, "WARN restart RX: strobe 0x36: spi down")
	assert.Len(t, spi.calls, 1)
}

// failAfterSPI passes the first ok transfers through and fails the rest.
type failAfterSPI struct {
	SPI
	ok int
}

func (f *failAfterSPI) Tx(w, r []byte) error {
	if f.ok == 0 {
		return errors.New("spi down")
	}
	f.ok--
	return f.SPI.Tx(w, r)
}
