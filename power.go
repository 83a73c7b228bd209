package sniffer

import (
	"context"
	"time"
)

// SleepTimerTick is one sleep timer event period: 2^5 cycles of the 32.768 kHz clock.
const SleepTimerTick = 32 * time.Second / 32768

// LowPower sleeps ticks sleep-timer periods with all servicing suspended.
type LowPower struct {
	clock     Clock
	indicator Indicator
	tick      time.Duration
}

// NewLowPower returns a Power that halts for ticks*tick. A zero tick uses SleepTimerTick.
func NewLowPower(clock Clock, ind Indicator, tick time.Duration) *LowPower {
	if ind == nil {
		ind = nopIndicator{}
	}
	if tick <= 0 {
		tick = SleepTimerTick
	}
	return &LowPower{clock: clock, indicator: ind, tick: tick}
}

func (p *LowPower) Sleep(ctx context.Context, ticks uint16) error {
	p.indicator.SetFault(true)
	defer p.indicator.SetFault(false)

	const step = 100 * time.Millisecond
	d := time.Duration(ticks) * p.tick
	for d > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := min(step, d)
		p.clock.Sleep(w)
		d -= w
	}
	return nil
}

// BusyWait waits while keeping the transport serviced, for use when a host
// is attached. The ticks count is taken as seconds.
type BusyWait struct {
	clock     Clock
	transport Transport
	indicator Indicator
}

// NewBusyWait returns a Power that blinks the fault light once per second while waiting.
func NewBusyWait(clock Clock, transport Transport, ind Indicator) *BusyWait {
	if ind == nil {
		ind = nopIndicator{}
	}
	return &BusyWait{clock: clock, transport: transport, indicator: ind}
}

func (p *BusyWait) Sleep(ctx context.Context, seconds uint16) error {
	start := p.clock.Millis()
	for (p.clock.Millis()-start)/1000 < uint32(seconds) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.indicator.SetFault((p.clock.Millis()/1000)%2 == 0)
		p.clock.Sleep(100 * time.Millisecond)
		if p.transport != nil {
			if err := p.transport.Service(); err != nil {
				globalLogger.Warn("transport service: " + err.Error())
			}
		}
	}
	return nil
}
