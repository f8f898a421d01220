package serialport

import (
	"strconv"
	"strings"

	"github.com/allbin/go-serialport/logger"
)

// Parity represents the parity mode
type Parity string

const (
	ParityNone  Parity = "none"
	ParityEven  Parity = "even"
	ParityMark  Parity = "mark"
	ParityOdd   Parity = "odd"
	ParitySpace Parity = "space"
)

// Valid reports whether p is one of the known parity modes.
func (p Parity) Valid() bool {
	switch p {
	case ParityNone, ParityEven, ParityMark, ParityOdd, ParitySpace:
		return true
	}
	return false
}

// Letter returns the single letter used in "8N1" style notation.
func (p Parity) Letter() string {
	switch p {
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParityOdd:
		return "O"
	case ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// ParseParity accepts a parity name ("none", "even", ...) or its letter
// ("N", "E", ...), case-insensitively.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n":
		return ParityNone, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "odd", "o":
		return ParityOdd, nil
	case "space", "s":
		return ParitySpace, nil
	}
	return "", &ConfigError{Field: "parity", Value: s}
}

// StopBits represents the number of stop bits
type StopBits float64

const (
	StopBitsOne          StopBits = 1
	StopBitsOnePointFive StopBits = 1.5
	StopBitsTwo          StopBits = 2
)

// Valid reports whether s is 1, 1.5 or 2.
func (s StopBits) Valid() bool {
	return s == StopBitsOne || s == StopBitsOnePointFive || s == StopBitsTwo
}

func (s StopBits) String() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// ParseStopBits accepts "1", "1.5" or "2".
func ParseStopBits(s string) (StopBits, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !StopBits(v).Valid() {
		return 0, &ConfigError{Field: "stopBits", Value: s}
	}
	return StopBits(v), nil
}

// DefaultHighWaterMark is the default number of inbound bytes buffered before
// the port stops reading from the binding.
const DefaultHighWaterMark = 64 * 1024

// Config holds the configuration for a serial port
type Config struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits StopBits
	Parity   Parity
	XOn      bool
	XOff     bool
	XAny     bool
	RTSCTS   bool
	Lock     bool // Refuse to share the device with other handles
	AutoOpen bool // Open as soon as the Port is created

	HighWaterMark int      // Inbound buffer size in bytes
	Encoding      Encoding // Encoding applied to string writes

	// Platform carries backend specific settings to the binding untouched.
	Platform map[string]any

	logger    logger.Logger
	listeners []listenerSpec
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:      9600,
		DataBits:      8,
		StopBits:      StopBitsOne,
		Parity:        ParityNone,
		Lock:          true,
		AutoOpen:      true,
		HighWaterMark: DefaultHighWaterMark,
		Encoding:      EncodingUTF8,
	}
}

// Validate checks every field against its legal set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return &ConfigError{Field: "path", Value: c.Path}
	}
	if c.BaudRate <= 0 {
		return &ConfigError{Field: "baudRate", Value: c.BaudRate}
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return &ConfigError{Field: "dataBits", Value: c.DataBits}
	}
	if !c.StopBits.Valid() {
		return &ConfigError{Field: "stopBits", Value: c.StopBits}
	}
	if !c.Parity.Valid() {
		return &ConfigError{Field: "parity", Value: c.Parity}
	}
	if c.HighWaterMark <= 0 {
		return &ConfigError{Field: "highWaterMark", Value: c.HighWaterMark}
	}
	if !c.Encoding.Valid() {
		return &ConfigError{Field: "encoding", Value: c.Encoding}
	}
	return nil
}

// Mode returns the "9600 8N1" style summary of the line settings.
func (c *Config) Mode() string {
	return strconv.Itoa(c.BaudRate) + " " + strconv.Itoa(c.DataBits) + c.Parity.Letter() + c.StopBits.String()
}

func (c *Config) openOptions() OpenOptions {
	return OpenOptions{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		Parity:   c.Parity,
		XOn:      c.XOn,
		XOff:     c.XOff,
		XAny:     c.XAny,
		RTSCTS:   c.RTSCTS,
		Lock:     c.Lock,
		Platform: c.Platform,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return &ConfigError{Field: "baudRate", Value: rate}
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return &ConfigError{Field: "dataBits", Value: bits}
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1, 1.5 or 2)
func WithStopBits(bits StopBits) Option {
	return func(c *Config) error {
		if !bits.Valid() {
			return &ConfigError{Field: "stopBits", Value: bits}
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if !parity.Valid() {
			return &ConfigError{Field: "parity", Value: parity}
		}
		c.Parity = parity
		return nil
	}
}

// WithSoftwareFlowControl sets the XON, XOFF and XANY flags
func WithSoftwareFlowControl(xon, xoff, xany bool) Option {
	return func(c *Config) error {
		c.XOn, c.XOff, c.XAny = xon, xoff, xany
		return nil
	}
}

// WithRTSCTS enables or disables hardware flow control
func WithRTSCTS(enabled bool) Option {
	return func(c *Config) error {
		c.RTSCTS = enabled
		return nil
	}
}

// WithLock controls whether the port refuses to share the device
func WithLock(lock bool) Option {
	return func(c *Config) error {
		c.Lock = lock
		return nil
	}
}

// WithAutoOpen controls whether New schedules an Open
func WithAutoOpen(autoOpen bool) Option {
	return func(c *Config) error {
		c.AutoOpen = autoOpen
		return nil
	}
}

// WithHighWaterMark sets how many inbound bytes are buffered before reading
// from the binding pauses
func WithHighWaterMark(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return &ConfigError{Field: "highWaterMark", Value: n}
		}
		c.HighWaterMark = n
		return nil
	}
}

// WithEncoding sets the encoding used for string writes
func WithEncoding(enc Encoding) Option {
	return func(c *Config) error {
		if !enc.Valid() {
			return &ConfigError{Field: "encoding", Value: enc}
		}
		c.Encoding = enc
		return nil
	}
}

// WithPlatformOptions passes backend specific settings to the binding
func WithPlatformOptions(opts map[string]any) Option {
	return func(c *Config) error {
		c.Platform = opts
		return nil
	}
}

// WithLogger sets the logger used for diagnostic tracing
func WithLogger(l logger.Logger) Option {
	return func(c *Config) error {
		c.logger = l
		return nil
	}
}

// WithListener registers fn for kind before the port does anything, so it
// observes the automatic open as well
func WithListener(kind EventKind, fn Listener) Option {
	return func(c *Config) error {
		if fn == nil || !kind.Valid() {
			return &ConfigError{Field: "listener", Value: kind}
		}
		c.listeners = append(c.listeners, listenerSpec{kind: kind, fn: fn})
		return nil
	}
}
