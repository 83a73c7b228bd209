package sniffer

import (
	"context"
	"fmt"
	"time"
)

// State is a step of the scan cycle.
type State uint8

const (
	ScanChannel0 State = iota
	ScanChannel1
	ScanChannel2
	ScanChannel3
	EmitSummary
	Sleep
)

func (s State) String() string {
	switch s {
	case ScanChannel0, ScanChannel1, ScanChannel2, ScanChannel3:
		return fmt.Sprintf("scan-channel-%d", int(s))
	case EmitSummary:
		return "emit-summary"
	case Sleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// Stats counts capture outcomes since the scheduler was created.
type Stats struct {
	Cycles    int
	Received  int
	CRCFailed int
	Timeouts  int
}

// Scheduler runs the scan cycle: an unbounded wait on channel 0, short
// listens on channels 1 to 3, the summary packet and a sleep.
type Scheduler struct {
	capture   *Capture
	trace     *Formatter
	power     Power
	queue     RxQueue
	transport Transport
	indicator Indicator
	clock     Clock

	hopTimeout time.Duration
	preSleep   time.Duration
	sleepTicks uint16

	// OnState, when set, is called on every state transition.
	OnState func(State)

	summary RawPacket
	stats   Stats
}

// SchedulerConfig holds the timing of a scan cycle.
type SchedulerConfig struct {
	HopTimeout    time.Duration
	PreSleepDelay time.Duration
	SleepTicks    uint16
}

// NewScheduler returns a scheduler. transport may be nil.
func NewScheduler(c SchedulerConfig, capture *Capture, trace *Formatter, power Power, queue RxQueue, transport Transport, ind Indicator, clock Clock) *Scheduler {
	if ind == nil {
		ind = nopIndicator{}
	}
	return &Scheduler{
		capture:    capture,
		trace:      trace,
		power:      power,
		queue:      queue,
		transport:  transport,
		indicator:  ind,
		clock:      clock,
		hopTimeout: c.HopTimeout,
		preSleep:   c.PreSleepDelay,
		sleepTicks: c.SleepTicks,
	}
}

// Stats returns the capture counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Cycle runs one full scan cycle. Timeouts and CRC failures are traced and
// never end the cycle early; only hardware errors and ctx do.
func (s *Scheduler) Cycle(ctx context.Context) error {
	s.summary.Reset()
	s.indicator.SetFault(false)

	var timeout time.Duration // the first channel waits forever
	for ch := 0; ch < NumChannels; ch++ {
		s.enter(State(ch))
		res, err := s.capture.WaitForPacket(ctx, timeout, ch, &s.summary)
		if err != nil {
			return err
		}
		s.count(res)
		globalLogger.Debug(res.String())
		timeout = s.hopTimeout
	}

	s.enter(EmitSummary)
	s.trace.Packet(s.summary[:])

	s.trace.Event("%d Enter sleep", s.clock.Millis())
	if s.trace.Verbose() {
		if err := s.delay(ctx, s.preSleep); err != nil {
			return err
		}
	}

	s.enter(Sleep)
	if err := s.power.Sleep(ctx, s.sleepTicks); err != nil {
		return err
	}
	s.trace.Event("%d Wakeup from sleep", s.clock.Millis())
	s.stats.Cycles++
	return nil
}

// Run repeats Cycle until ctx is done, an error occurs or, when cycles is
// positive, that many cycles have completed.
func (s *Scheduler) Run(ctx context.Context, cycles int) error {
	for n := 0; cycles <= 0 || n < cycles; n++ {
		s.service()
		s.updateIndicators()
		if err := s.Cycle(ctx); err != nil {
			return err
		}
		s.indicator.SetStatus(false)
	}
	return nil
}

func (s *Scheduler) enter(st State) {
	if s.OnState != nil {
		s.OnState(st)
	}
}

func (s *Scheduler) count(res CaptureResult) {
	switch res.Status {
	case CaptureReceived:
		s.stats.Received++
	case CaptureCRCFailed:
		s.stats.CRCFailed++
	default:
		s.stats.Timeouts++
	}
}

func (s *Scheduler) updateIndicators() {
	s.indicator.SetStatus(s.transport != nil && s.transport.Ready())
	s.indicator.SetActivity(s.queue.Current() != nil)
	s.indicator.SetFault(false)
}

func (s *Scheduler) service() {
	if s.transport == nil {
		return
	}
	if err := s.transport.Service(); err != nil {
		globalLogger.Warn("transport service: " + err.Error())
	}
}

// delay waits for d while keeping the transport serviced.
func (s *Scheduler) delay(ctx context.Context, d time.Duration) error {
	const step = 100 * time.Millisecond
	for d > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.service()
		w := min(step, d)
		s.clock.Sleep(w)
		d -= w
	}
	return nil
}
