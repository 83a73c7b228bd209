package sniffer

import "time"

// SystemClock counts milliseconds from its creation.
type SystemClock struct {
	boot time.Time
}

// NewSystemClock returns a clock whose epoch is now.
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.boot).Milliseconds())
}

func (c *SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
