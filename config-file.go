//go:build !tinygo

package sniffer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	return cfg, nil
}

// Options are the settings of the sniffer program that are not part of Config.
type Options struct {
	ConfigPath string
	// SelfTest prints the decoder and CRC diagnostics and exits.
	SelfTest bool
	// TestFrames sends that many counter frames on the frame sink and exits.
	TestFrames int
}

// BindFlags registers the command line flags for c on fs. Flag defaults are
// the current values of c, so binding after loading a file lets flags
// override the file.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Write the text packet trace.")
	fs.Var(&transportValue{&c.Transport}, "transport", "Output mode: usb (text trace) or uart (binary frames).")
	fs.StringVarP(&c.Serial.Port, "serial-port", "p", c.Serial.Port, "Serial port for the output. Empty writes the trace to stdout.")
	fs.IntVarP(&c.Serial.BaudRate, "baud", "b", c.Serial.BaudRate, "Serial port speed.")
	fs.DurationVar(&c.HopTimeout, "hop-timeout", c.HopTimeout, "How long to listen on channels 1 to 3.")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Receive queue polling interval.")
	fs.Uint16Var(&c.SleepTicks, "sleep-ticks", c.SleepTicks, "Length of the sleep between cycles.")
	fs.IntVar(&c.IdleRetries, "idle-retries", c.IdleRetries, "Give up retuning after this many idle polls (0 waits forever).")
	fs.Var(&offsetPolicyValue{&c.OffsetPolicy}, "offset-policy", "Frequency offset accumulation: wrap or saturate.")
	fs.IntVarP(&c.Cycles, "cycles", "n", c.Cycles, "Stop after this many scan cycles (0 runs forever).")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&c.Radio.SPIPort, "spi", c.Radio.SPIPort, "SPI port of the transceiver.")
	fs.StringVar(&c.LEDs.Activity, "led-activity", c.LEDs.Activity, "GPIO of the activity light.")
	fs.StringVar(&c.LEDs.Status, "led-status", c.LEDs.Status, "GPIO of the status light.")
	fs.StringVar(&c.LEDs.Fault, "led-fault", c.LEDs.Fault, "GPIO of the fault light.")
}

func bindOptions(fs *pflag.FlagSet, o *Options) {
	fs.StringVarP(&o.ConfigPath, "config", "c", o.ConfigPath, "YAML configuration file.")
	fs.BoolVar(&o.SelfTest, "selftest", o.SelfTest, "Print decoder and CRC diagnostics and exit.")
	fs.IntVar(&o.TestFrames, "test-frames", o.TestFrames, "Send this many counter frames and exit.")
}

// ParseArgs builds the configuration from defaults, the file named by
// --config and the remaining flags, in that order of precedence.
func ParseArgs(name string, args []string, stderr io.Writer) (Config, Options, error) {
	var opts Options

	// First pass only finds --config.
	probe := pflag.NewFlagSet(name, pflag.ContinueOnError)
	probe.SetOutput(io.Discard)
	scratch := DefaultConfig()
	BindFlags(probe, &scratch)
	bindOptions(probe, &opts)
	if err := probe.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return scratch, opts, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = LoadConfig(opts.ConfigPath); err != nil {
			return cfg, opts, err
		}
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	BindFlags(fs, &cfg)
	bindOptions(fs, &opts)
	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, opts, err
	}
	return cfg, opts, nil
}

type transportValue struct{ m *TransportMode }

func (v *transportValue) String() string {
	if v.m == nil {
		return TransportUSB.String()
	}
	return v.m.String()
}
func (v *transportValue) Set(s string) error { return v.m.UnmarshalText([]byte(s)) }
func (v *transportValue) Type() string       { return "mode" }

type offsetPolicyValue struct{ p *OffsetPolicy }

func (v *offsetPolicyValue) String() string {
	if v.p == nil {
		return OffsetWrap.String()
	}
	return v.p.String()
}
func (v *offsetPolicyValue) Set(s string) error { return v.p.UnmarshalText([]byte(s)) }
func (v *offsetPolicyValue) Type() string       { return "policy" }
