package sniffer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TransportMode selects where output goes.
type TransportMode uint8

const (
	// TransportUSB writes the text trace to the console and busy-waits
	// between cycles so the host link stays up.
	TransportUSB TransportMode = iota
	// TransportUART sends binary telemetry frames only and enters low power
	// between cycles.
	TransportUART
)

func (m TransportMode) String() string {
	switch m {
	case TransportUSB:
		return "usb"
	case TransportUART:
		return "uart"
	default:
		return "unknown"
	}
}

// ParseTransportMode accepts "usb" or "uart".
func ParseTransportMode(s string) (TransportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "usb":
		return TransportUSB, nil
	case "uart":
		return TransportUART, nil
	}
	return TransportUSB, fmt.Errorf("%w: unknown transport %q", ErrConfig, s)
}

func (m TransportMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *TransportMode) UnmarshalText(b []byte) error {
	v, err := ParseTransportMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SerialOptions describes the serial line used for the trace or the binary
// telemetry frames. An empty Port means standard output.
type SerialOptions struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o SerialOptions) Normalize() (SerialOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("%w: invalid data bits %d: must be between 5 and 8", ErrConfig, opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("%w: invalid stop bits %d: supported values are 1 or 2", ErrConfig, opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("%w: unsupported parity %q: expected N, E, or O", ErrConfig, o.Parity)
	}
	return opts, nil
}

// RadioOptions locates the transceiver.
type RadioOptions struct {
	// SPIPort is the periph SPI port name; empty selects the first port.
	SPIPort string `yaml:"spi_port"`
	SpeedHz int64  `yaml:"speed_hz"`
}

// LEDOptions names the GPIO pins of the three indicator lights.
// Empty names leave a light unconnected.
type LEDOptions struct {
	Activity string `yaml:"activity"`
	Status   string `yaml:"status"`
	Fault    string `yaml:"fault"`
}

// Config is the complete sniffer configuration.
type Config struct {
	Verbose   bool          `yaml:"verbose"`
	Transport TransportMode `yaml:"transport"`
	Serial    SerialOptions `yaml:"serial"`

	Channels     [NumChannels]Channel `yaml:"channels"`
	OffsetPolicy OffsetPolicy         `yaml:"offset_policy"`

	// HopTimeout bounds the wait on channels 1 to 3.
	HopTimeout    time.Duration `yaml:"hop_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	PreSleepDelay time.Duration `yaml:"pre_sleep_delay"`
	SleepTicks    uint16        `yaml:"sleep_ticks"`
	// IdleRetries bounds the idle handshake when retuning; 0 waits forever.
	IdleRetries int `yaml:"idle_retries"`
	// Cycles stops the sniffer after that many scan cycles; 0 runs forever.
	Cycles int `yaml:"cycles"`

	LogLevel string       `yaml:"log_level"`
	Radio    RadioOptions `yaml:"radio"`
	LEDs     LEDOptions   `yaml:"leds"`
}

// DefaultConfig returns the configuration of the stock firmware.
func DefaultConfig() Config {
	return Config{
		Verbose:       true,
		Transport:     TransportUSB,
		Serial:        SerialOptions{BaudRate: 115200},
		Channels:      DefaultChannels,
		OffsetPolicy:  OffsetWrap,
		HopTimeout:    600 * time.Millisecond,
		PollInterval:  time.Millisecond,
		PreSleepDelay: time.Second,
		SleepTicks:    270,
		LogLevel:      "info",
		Radio:         RadioOptions{SpeedHz: 5_000_000},
	}
}

// Validate reports every problem found in c.
func (c Config) Validate() error {
	var errs []error
	if c.HopTimeout < time.Millisecond {
		errs = append(errs, fmt.Errorf("hop_timeout must be at least 1ms, got %s", c.HopTimeout))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll_interval must not be negative"))
	}
	if c.PreSleepDelay < 0 {
		errs = append(errs, fmt.Errorf("pre_sleep_delay must not be negative"))
	}
	if c.IdleRetries < 0 {
		errs = append(errs, fmt.Errorf("idle_retries must not be negative"))
	}
	if c.Cycles < 0 {
		errs = append(errs, fmt.Errorf("cycles must not be negative"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Serial.Normalize(); err != nil {
		errs = append(errs, err)
	}
	if c.Radio.SpeedHz < 0 {
		errs = append(errs, fmt.Errorf("radio speed_hz must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}
