package sniffer

import (
	"context"
	"time"
)

// Capture waits for single packets on a hop channel.
type Capture struct {
	tuner     *Tuner
	radio     Radio
	queue     RxQueue
	offsets   *Offsets
	transport Transport
	indicator Indicator
	trace     *Formatter
	clock     Clock
	poll      time.Duration
}

// NewCapture wires a capture loop. transport may be nil when nothing needs servicing.
func NewCapture(tuner *Tuner, radio Radio, queue RxQueue, o *Offsets, transport Transport, ind Indicator, trace *Formatter, clock Clock, poll time.Duration) *Capture {
	if ind == nil {
		ind = nopIndicator{}
	}
	return &Capture{
		tuner:     tuner,
		radio:     radio,
		queue:     queue,
		offsets:   o,
		transport: transport,
		indicator: ind,
		trace:     trace,
		clock:     clock,
		poll:      poll,
	}
}

// WaitForPacket tunes to channel ch and waits up to timeout for one packet.
// A zero timeout waits until a packet arrives or ctx is done.
//
// A CRC-valid packet updates the channel's frequency offset and is copied
// into result. A corrupted packet is traced and reported as CaptureCRCFailed;
// result is left untouched. Either way the packet is released before
// returning and only one packet is consumed per call.
func (c *Capture) WaitForPacket(ctx context.Context, timeout time.Duration, ch int, result *RawPacket) (CaptureResult, error) {
	res := CaptureResult{Channel: ch}

	if err := c.tuner.Select(ctx, ch); err != nil {
		return res, err
	}

	limit := uint32(timeout / time.Millisecond)
	start := c.clock.Millis()
	c.trace.Event("[%d] starting wait for packet on channel %d(%d) - will wait for %d ms",
		start, ch, c.radio.Channel(), limit)

	for {
		now := c.clock.Millis()
		if limit != 0 && now-start >= limit {
			break
		}

		if c.transport != nil {
			if err := c.transport.Service(); err != nil {
				globalLogger.Warn("transport service: " + err.Error())
			}
		}
		c.indicator.SetActivity((now/250)%4 == 0)

		pkt := c.queue.Current()
		if pkt == nil {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			c.clock.Sleep(c.poll)
			continue
		}

		c.handle(ch, pkt, result, &res)
		c.queue.Done()
		return res, nil
	}

	c.trace.Event("[%d] timed out waiting for packet on channel %d(%d)",
		c.clock.Millis(), ch, c.radio.Channel())
	return res, nil
}

func (c *Capture) handle(ch int, pkt []byte, result *RawPacket, res *CaptureResult) {
	length := uint8(0)
	if len(pkt) > 0 {
		length = pkt[0]
	}
	res.RSSI = c.queue.RSSI()
	res.LQI = c.queue.LQI()
	res.CRCOK = c.queue.CRCPassed()

	if !res.CRCOK {
		res.Status = CaptureCRCFailed
		c.trace.Event("[%d] CRC failure channel %d(%d) RSSI %d %d bytes received LQI %d",
			c.clock.Millis(), ch, c.radio.Channel(), RSSIdBm(res.RSSI), length, res.LQI)
		if c.trace.Verbose() {
			c.trace.Packet(pkt)
		}
		return
	}

	res.Status = CaptureReceived
	est := c.radio.FreqEstimate()
	prev := c.offsets.Get(ch)
	c.offsets.Learn(ch, est)

	c.trace.Event("[%d] received packet channel %d(%d) RSSI %d offset %02X bytes %d LQI %d",
		c.clock.Millis(), ch, c.radio.Channel(), RSSIdBm(res.RSSI), c.offsets.Get(ch), length, res.LQI)
	c.trace.Event("[%d] %d %d ", c.clock.Millis(), est, int8(prev))

	result.Reset()
	copy(result[:], pkt)
	res.Packet = *result

	// The queued packet and the copy are both traced.
	if c.trace.Verbose() {
		c.trace.Packet(pkt)
		c.trace.Packet(result[:])
	}
}
