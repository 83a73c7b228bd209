package sniffer

import (
	"fmt"
	"strings"
)

// NumChannels is the number of hop channels scanned per cycle.
const NumChannels = 4

// Channel is the static configuration of one hop channel.
type Channel struct {
	// Number is written to the channel number register.
	Number uint8 `yaml:"number"`
	// SeedOffset is the initial frequency offset register value.
	SeedOffset uint8 `yaml:"seed_offset"`
}

// DefaultChannels is the hop table of the observed link.
var DefaultChannels = [NumChannels]Channel{
	{Number: 0, SeedOffset: 0xCE},
	{Number: 100, SeedOffset: 0xD5},
	{Number: 199, SeedOffset: 0xE6},
	{Number: 209, SeedOffset: 0xE5},
}

// OffsetPolicy controls how learned frequency errors accumulate.
type OffsetPolicy uint8

const (
	// OffsetWrap adds modulo 256, like the 8-bit register itself.
	OffsetWrap OffsetPolicy = iota
	// OffsetSaturate treats the offset as signed and clamps at -128 and 127.
	OffsetSaturate
)

func (p OffsetPolicy) String() string {
	switch p {
	case OffsetWrap:
		return "wrap"
	case OffsetSaturate:
		return "saturate"
	default:
		return "unknown"
	}
}

// ParseOffsetPolicy accepts "wrap" or "saturate".
func ParseOffsetPolicy(s string) (OffsetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wrap":
		return OffsetWrap, nil
	case "saturate":
		return OffsetSaturate, nil
	}
	return OffsetWrap, fmt.Errorf("%w: unknown offset policy %q", ErrConfig, s)
}

func (p OffsetPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *OffsetPolicy) UnmarshalText(b []byte) error {
	v, err := ParseOffsetPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Offsets holds the per-channel frequency offset learned from valid packets.
// It is written by the capture loop and read by the tuner.
type Offsets struct {
	policy OffsetPolicy
	seed   [NumChannels]uint8
	cur    [NumChannels]uint8
}

// NewOffsets returns offsets seeded from the channel table.
func NewOffsets(channels [NumChannels]Channel, policy OffsetPolicy) *Offsets {
	o := &Offsets{policy: policy}
	for i, c := range channels {
		o.seed[i] = c.SeedOffset
	}
	o.Reset()
	return o
}

// Get returns the offset register value for channel ch.
func (o *Offsets) Get(ch int) uint8 {
	return o.cur[ch]
}

// Learn adds the frequency error estimate of a CRC-valid packet to channel ch.
func (o *Offsets) Learn(ch int, freqErr int8) {
	switch o.policy {
	case OffsetSaturate:
		v := int(int8(o.cur[ch])) + int(freqErr)
		if v > 127 {
			v = 127
		} else if v < -128 {
			v = -128
		}
		o.cur[ch] = uint8(int8(v))
	default:
		o.cur[ch] += uint8(freqErr)
	}
}

// Reset restores the seed offsets.
func (o *Offsets) Reset() {
	o.cur = o.seed
}
