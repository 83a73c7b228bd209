package sniffer

import (
	"context"
	"fmt"
)

// Tuner retunes the receiver to one of the hop channels.
type Tuner struct {
	radio    Radio
	channels [NumChannels]Channel
	offsets  *Offsets
	trace    *Formatter
	clock    Clock
	// maxIdlePolls bounds the idle handshake; 0 waits forever.
	maxIdlePolls int
}

// NewTuner returns a tuner programming channels with the offsets in o.
func NewTuner(radio Radio, channels [NumChannels]Channel, o *Offsets, trace *Formatter, clock Clock, maxIdlePolls int) *Tuner {
	return &Tuner{
		radio:        radio,
		channels:     channels,
		offsets:      o,
		trace:        trace,
		clock:        clock,
		maxIdlePolls: maxIdlePolls,
	}
}

// Select idles the receiver, programs the frequency offset and channel
// number of channel ch and starts receiving. Any reception in progress is
// aborted.
func (t *Tuner) Select(ctx context.Context, ch int) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("%w: %w: %d", ErrPkg, ErrChannel, ch)
	}

	t.trace.Event("%d Wait for idle", t.clock.Millis())
	if err := t.waitIdle(ctx); err != nil {
		return err
	}

	if err := t.radio.SetFreqOffset(t.offsets.Get(ch)); err != nil {
		return fmt.Errorf("%w: set frequency offset: %w", ErrPkg, err)
	}
	if err := t.radio.SetChannel(t.channels[ch].Number); err != nil {
		return fmt.Errorf("%w: set channel: %w", ErrPkg, err)
	}
	if err := t.radio.Strobe(StrobeRX); err != nil {
		return fmt.Errorf("%w: enter RX: %w", ErrPkg, err)
	}

	if t.trace.Verbose() {
		t.trace.Event("%d Channel:  %d ", t.clock.Millis(), ch)
		if state, err := t.radio.MarcState(); err != nil {
			t.trace.Event("[%d] state read failed: %v", t.clock.Millis(), err)
		} else {
			t.trace.Event("[%d] %d ", t.clock.Millis(), state)
		}
	}
	return nil
}

func (t *Tuner) waitIdle(ctx context.Context) error {
	for polls := 0; ; polls++ {
		if t.maxIdlePolls > 0 && polls >= t.maxIdlePolls {
			return fmt.Errorf("%w: %w after %d polls", ErrPkg, ErrIdleStall, polls)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.radio.Strobe(StrobeIdle); err != nil {
			return fmt.Errorf("%w: idle strobe: %w", ErrPkg, err)
		}
		state, err := t.radio.MarcState()
		if err != nil {
			return fmt.Errorf("%w: read state: %w", ErrPkg, err)
		}
		if state == MarcStateIdle {
			return nil
		}
	}
}
