package sniffer

import (
	"fmt"
	"sync"
)

// --- CC25xx registers ---

// Config registers
const (
	_IOCFG0   = 0x02
	_PKTLEN   = 0x06
	_PKTCTRL1 = 0x07
	_PKTCTRL0 = 0x08
	_CHANNR   = 0x0A
	_FSCTRL0  = 0x0C
	_MCSM1    = 0x17
	_MCSM0    = 0x18
)

// Status registers, read with the burst bit set
const (
	_PARTNUM   = 0x30
	_VERSION   = 0x31
	_FREQEST   = 0x32
	_MARCSTATE = 0x35
	_RXBYTES   = 0x3B
)

// Access flags
const (
	_READ_SINGLE = 0x80
	_READ_BURST  = 0xC0
	_FIFO        = 0x3F
	_SPWD        = 0x39

	_RX_OVERFLOW = 0x80
	_RX_BYTES    = 0x7F
	_FIFO_SIZE   = 64
)

// maxPacketLen keeps every packet inside a RawPacket: length byte, payload
// and the two appended status bytes.
const maxPacketLen = PacketSize - 3

// Device is a CC25xx transceiver on an SPI bus used as a receiver. It
// implements both Radio and RxQueue.
type Device struct {
	conn SPI
	mu   sync.Mutex

	channel uint8
	held    []byte
	scratch [1 + _FIFO_SIZE]byte
}

// NewDevice resets the transceiver and configures it for the sniffer:
// variable length packets with hardware CRC, RSSI and LQI appended, CRC
// errors kept, and return to IDLE after each packet so nothing is ever
// transmitted. extra holds additional register values (e.g. the RF settings
// of the observed link) written after the defaults.
func NewDevice(conn SPI, extra map[byte]byte) (*Device, error) {
	d := &Device{conn: conn}

	globalLogger.Info("Initializing CC25xx SPI communication...")

	if err := d.strobe(byte(StrobeReset)); err != nil {
		return nil, fmt.Errorf("%w: reset: %w", ErrPkg, err)
	}

	part := d.readStatus(_PARTNUM)
	ver := d.readStatus(_VERSION)
	if part != 0x80 {
		globalLogger.Warn(fmt.Sprintf("unexpected CC25xx part number 0x%02X version 0x%02X", part, ver))
	}

	defaults := []struct{ reg, val byte }{
		{_PKTCTRL1, 0x04}, // append RSSI and LQI|CRC_OK
		{_PKTCTRL0, 0x05}, // variable length, CRC on
		{_PKTLEN, maxPacketLen},
		{_IOCFG0, 0x06}, // sync word seen / end of packet
		{_MCSM1, 0x00},  // RX -> IDLE after a packet
		{_MCSM0, 0x14},  // calibrate IDLE -> RX
	}
	for _, r := range defaults {
		if err := d.writeRegister(r.reg, r.val); err != nil {
			return nil, fmt.Errorf("%w: configure: %w", ErrPkg, err)
		}
	}
	for reg, val := range extra {
		if err := d.writeRegister(reg, val); err != nil {
			return nil, fmt.Errorf("%w: configure 0x%02X: %w", ErrPkg, reg, err)
		}
	}

	// Read back the packet control register to check the SPI link.
	if got := d.readRegister(_PKTCTRL0); got != 0x05 {
		return nil, fmt.Errorf("%w: failed to verify CC25xx connection: check wiring/power", ErrPkg)
	}

	globalLogger.Info("CC25xx initialized. Ready to listen.")
	return d, nil
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("CC25xx(Channel=%d)", d.channel)
}

// Close idles the receiver and powers it down.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.held = nil
	if err := d.strobe(byte(StrobeIdle)); err != nil {
		return err
	}
	globalLogger.Info("CC25xx powered down.")
	return d.strobe(_SPWD)
}

// --- Radio ---

func (d *Device) Strobe(s Strobe) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.strobe(byte(s))
}

func (d *Device) MarcState() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = _MARCSTATE | _READ_BURST
	d.scratch[1] = 0
	if err := d.conn.Tx(d.scratch[:2], d.scratch[:2]); err != nil {
		return 0, err
	}
	return d.scratch[1] & 0x1F, nil
}

func (d *Device) SetFreqOffset(v uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegister(_FSCTRL0, v)
}

func (d *Device) SetChannel(ch uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeRegister(_CHANNR, ch); err != nil {
		return err
	}
	d.channel = ch
	return nil
}

// Channel returns the channel register as last written.
func (d *Device) Channel() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel
}

func (d *Device) FreqEstimate() int8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int8(d.readStatus(_FREQEST))
}

// --- RxQueue ---

// Current returns the received packet once the radio has gone back to IDLE
// with a complete packet in the RX FIFO.
func (d *Device) Current() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held != nil {
		return d.held
	}

	rx := d.readStatus(_RXBYTES)
	if rx&_RX_OVERFLOW != 0 {
		globalLogger.Warn("RX FIFO overflow")
		d.restartRX()
		return nil
	}
	n := int(rx & _RX_BYTES)
	if n < 3 {
		return nil
	}
	if d.readStatus(_MARCSTATE)&0x1F != MarcStateIdle {
		// still receiving
		return nil
	}

	data := d.readFIFO(n)
	if data == nil {
		return nil
	}
	length := int(data[0])
	if length > maxPacketLen || length+3 > len(data) {
		globalLogger.Debug(fmt.Sprintf("dropping malformed packet: length %d, %d bytes in FIFO", length, n))
		d.restartRX()
		return nil
	}
	d.held = data[:length+3]
	return d.held
}

func (d *Device) CRCPassed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return status(d.held, 2)&0x80 != 0
}

func (d *Device) RSSI() int8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int8(status(d.held, 1))
}

func (d *Device) LQI() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return status(d.held, 2) & 0x7F
}

// Done drops the current packet and restarts reception.
func (d *Device) Done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = nil
	d.restartRX()
}

// --- SPI helpers. Call with the lock held. ---

func (d *Device) strobe(cmd byte) error {
	d.scratch[0] = cmd
	return d.conn.Tx(d.scratch[:1], d.scratch[:1])
}

func (d *Device) writeRegister(reg, val byte) error {
	d.scratch[0] = reg
	d.scratch[1] = val
	return d.conn.Tx(d.scratch[:2], d.scratch[:2])
}

func (d *Device) readRegister(reg byte) byte {
	d.scratch[0] = reg | _READ_SINGLE
	d.scratch[1] = 0
	if err := d.conn.Tx(d.scratch[:2], d.scratch[:2]); err != nil {
		globalLogger.Error("SPI Transfer Error")
		return 0
	}
	return d.scratch[1]
}

func (d *Device) readStatus(reg byte) byte {
	d.scratch[0] = reg | _READ_BURST
	d.scratch[1] = 0
	if err := d.conn.Tx(d.scratch[:2], d.scratch[:2]); err != nil {
		globalLogger.Error("SPI Transfer Error")
		return 0
	}
	return d.scratch[1]
}

// readFIFO reads n bytes from the RX FIFO into a new slice.
func (d *Device) readFIFO(n int) []byte {
	if n > _FIFO_SIZE {
		n = _FIFO_SIZE
	}
	buf := d.scratch[:n+1]
	buf[0] = _FIFO | _READ_BURST
	for i := 1; i <= n; i++ {
		buf[i] = 0
	}
	if err := d.conn.Tx(buf, buf); err != nil {
		globalLogger.Error("SPI Transfer Error")
		return nil
	}
	// Copy out BEFORE the scratch buffer is reused.
	out := make([]byte, n)
	copy(out, buf[1:])
	return out
}

func (d *Device) restartRX() {
	for _, s := range []Strobe{StrobeIdle, StrobeFlushRX, StrobeRX} {
		if err := d.strobe(byte(s)); err != nil {
			globalLogger.Warn(fmt.Sprintf("restart RX: strobe 0x%02X: %v", byte(s), err))
			return
		}
	}
}
