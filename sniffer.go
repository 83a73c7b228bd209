// Package sniffer passively captures packets of a four-channel frequency
// hopping link and writes a trace of every packet, valid or corrupted.
//
// A scan cycle waits on channel 0 until some packet arrives, listens briefly
// on channels 1 to 3, emits the last valid packet and sleeps. Each valid
// packet also refines the frequency offset used for its channel.
package sniffer

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrPkg       = errors.New("sniffer")
	ErrChannel   = errors.New("channel index out of range")
	ErrIdleStall = errors.New("radio did not reach idle")
	ErrConfig    = errors.New("invalid configuration")
)

// Hardware bundles the collaborators the sniffer runs on.
type Hardware struct {
	Radio     Radio
	Queue     RxQueue
	Indicator Indicator
	Clock     Clock
	// Console receives the text trace. Nil disables it.
	Console Transport
	// Frames receives the binary telemetry. Nil disables it.
	Frames FrameSink

	closers []io.Closer
}

// Close flushes the console and releases the hardware in reverse order of opening.
func (h *Hardware) Close() error {
	var errs []error
	if h.Console != nil {
		if err := h.Console.Service(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range h.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

// Sniffer is the assembled capture pipeline.
type Sniffer struct {
	config    Config
	hw        *Hardware
	offsets   *Offsets
	trace     *Formatter
	tuner     *Tuner
	capture   *Capture
	scheduler *Scheduler
}

// New wires the pipeline described by c onto hw.
func New(c Config, hw *Hardware) (*Sniffer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if hw == nil || hw.Radio == nil || hw.Queue == nil || hw.Clock == nil {
		return nil, fmt.Errorf("%w: radio, queue and clock are required", ErrPkg)
	}
	if hw.Indicator == nil {
		hw.Indicator = nopIndicator{}
	}

	// Text only goes out over a USB style link; frames only over the UART.
	console, frames := hw.Console, hw.Frames
	if c.Transport == TransportUART {
		console = nil
	} else {
		frames = nil
	}

	s := &Sniffer{config: c, hw: hw}
	s.offsets = NewOffsets(c.Channels, c.OffsetPolicy)
	s.trace = NewFormatter(console, frames, hw.Radio, hw.Clock, hw.Indicator, c.Verbose)
	s.tuner = NewTuner(hw.Radio, c.Channels, s.offsets, s.trace, hw.Clock, c.IdleRetries)
	s.capture = NewCapture(s.tuner, hw.Radio, hw.Queue, s.offsets, console, hw.Indicator, s.trace, hw.Clock, c.PollInterval)

	var power Power
	if c.Transport == TransportUSB {
		power = NewBusyWait(hw.Clock, console, hw.Indicator)
	} else {
		power = NewLowPower(hw.Clock, hw.Indicator, SleepTimerTick)
	}
	s.scheduler = NewScheduler(SchedulerConfig{
		HopTimeout:    c.HopTimeout,
		PreSleepDelay: c.PreSleepDelay,
		SleepTicks:    c.SleepTicks,
	}, s.capture, s.trace, power, hw.Queue, console, hw.Indicator, hw.Clock)
	return s, nil
}

// Offsets exposes the learned frequency offsets.
func (s *Sniffer) Offsets() *Offsets { return s.offsets }

// Formatter exposes the trace formatter.
func (s *Sniffer) Formatter() *Formatter { return s.trace }

// Scheduler exposes the scan scheduler.
func (s *Sniffer) Scheduler() *Scheduler { return s.scheduler }

// Run tunes to channel 0 and runs scan cycles until ctx is done or the
// configured number of cycles has completed. Cancellation is not an error.
func (s *Sniffer) Run(ctx context.Context) error {
	if s.hw.Frames != nil && s.config.Transport == TransportUART {
		// Bring the frame link to a known state.
		if err := s.hw.Frames.Enable(); err != nil {
			globalLogger.Warn("frame sink enable: " + err.Error())
		}
		if err := s.hw.Frames.Disable(); err != nil {
			globalLogger.Warn("frame sink disable: " + err.Error())
		}
	}

	if err := s.tuner.Select(ctx, 0); err != nil {
		return s.finish(ctx, err)
	}
	globalLogger.Info(fmt.Sprintf("Sniffing %d channels, transport %s", NumChannels, s.config.Transport))

	return s.finish(ctx, s.scheduler.Run(ctx, s.config.Cycles))
}

func (s *Sniffer) finish(ctx context.Context, err error) error {
	st := s.scheduler.Stats()
	globalLogger.Info(fmt.Sprintf("Stopped after %d cycles: %d received, %d CRC failures, %d timeouts",
		st.Cycles, st.Received, st.CRCFailed, st.Timeouts))
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
