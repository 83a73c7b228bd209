package sniffer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectProgramsEveryChannel(t *testing.T) {
	want := [][]string{
		{"SIDLE", "MARCSTATE", "FSCTRL0=CE", "CHANNR=0", "SRX"},
		{"SIDLE", "MARCSTATE", "FSCTRL0=D5", "CHANNR=100", "SRX"},
		{"SIDLE", "MARCSTATE", "FSCTRL0=E6", "CHANNR=199", "SRX"},
		{"SIDLE", "MARCSTATE", "FSCTRL0=E5", "CHANNR=209", "SRX"},
	}
	for ch, calls := range want {
		r := newRig(false, false)
		require.NoError(t, r.tuner.Select(context.Background(), ch))
		if diff := cmp.Diff(calls, r.radio.calls); diff != "" {
			t.Errorf("Select(%d) register access mismatch (-want +got):\n%s", ch, diff)
		}
	}
}

func TestSelectWaitsForIdle(t *testing.T) {
	r := newRig(false, false)
	r.radio.marc = []byte{0x0D, 0x0D, 0x11} // RX, RX, RX_OVERFLOW

	require.NoError(t, r.tuner.Select(context.Background(), 1))

	want := []string{
		"SIDLE", "MARCSTATE",
		"SIDLE", "MARCSTATE",
		"SIDLE", "MARCSTATE",
		"SIDLE", "MARCSTATE",
		"FSCTRL0=D5", "CHANNR=100", "SRX",
	}
	if diff := cmp.Diff(want, r.radio.calls); diff != "" {
		t.Errorf("register access mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectIdleStall(t *testing.T) {
	r := newRig(false, false)
	r.tuner = NewTuner(r.radio, DefaultChannels, r.offsets, r.trace, r.clock, 3)
	r.radio.marc = []byte{0x0D, 0x0D, 0x0D, 0x0D, 0x0D}

	err := r.tuner.Select(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdleStall))
	assert.Empty(t, r.radio.tunings(), "nothing may be programmed before idle")
}

func TestSelectCancelled(t *testing.T) {
	r := newRig(false, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.tuner.Select(ctx, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectBadChannel(t *testing.T) {
	r := newRig(false, false)
	for _, ch := range []int{-1, NumChannels, 99} {
		err := r.tuner.Select(context.Background(), ch)
		assert.True(t, errors.Is(err, ErrChannel), "channel %d", ch)
		assert.True(t, errors.Is(err, ErrPkg), "channel %d", ch)
	}
	assert.Empty(t, r.radio.calls)
}

func TestSelectStrobeError(t *testing.T) {
	r := newRig(false, false)
	r.radio.strobeErr = errors.New("bus fault")

	err := r.tuner.Select(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus fault")
}

func TestSelectUsesLearnedOffset(t *testing.T) {
	r := newRig(false, false)
	r.offsets.Learn(2, -6)

	require.NoError(t, r.tuner.Select(context.Background(), 2))
	assert.Equal(t, []string{"FSCTRL0=E0", "CHANNR=199"}, r.radio.tunings())
}

func TestSelectVerboseTrace(t *testing.T) {
	r := newRig(true, false)
	r.clock.ms = 42

	require.NoError(t, r.tuner.Select(context.Background(), 3))

	lines := strings.Split(strings.TrimSuffix(r.console.String(), "\r\n"), "\r\n")
	assert.Equal(t, []string{"42 Wait for idle", "42 Channel:  3 ", "[42] 1 "}, lines)
}

func TestSelectVerboseStateReadError(t *testing.T) {
	r := newRig(true, false)
	r.clock.ms = 42
	r.radio.marcFailAt = 2 // the idle poll succeeds, the traced read fails

	require.NoError(t, r.tuner.Select(context.Background(), 1))

	lines := strings.Split(strings.TrimSuffix(r.console.String(), "\r\n"), "\r\n")
	assert.Equal(t, []string{
		"42 Wait for idle",
		"42 Channel:  1 ",
		"[42] state read failed: marcstate read failed",
	}, lines)
}
