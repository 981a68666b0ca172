package comport

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// Letter returns the single-letter form used in "8N1" notation.
func (p Parity) Letter() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return "N"
	}
}

// ParseParity accepts either the full name or the single letter, case-insensitively.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n", "":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	}
	return ParityNone, fmt.Errorf("parity %q: %w", s, ErrInvalidConfig)
}

// StopBits represents the number of stop bits
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsOnePointFive:
		return "1.5"
	case StopBitsTwo:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", int(s))
	}
}

// ParseStopBits accepts "1", "1.5" and "2".
func ParseStopBits(s string) (StopBits, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "one", "":
		return StopBitsOne, nil
	case "1.5", "onepointfive":
		return StopBitsOnePointFive, nil
	case "2", "two":
		return StopBitsTwo, nil
	}
	return StopBitsOne, fmt.Errorf("stop bits %q: %w", s, ErrInvalidConfig)
}

// MaxReadTimeout bounds how long a single read may block.
const MaxReadTimeout = time.Minute

var baudRates = []int{
	50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800, 2400, 4800, 9600,
	19200, 38400, 57600, 115200, 230400, 460800, 500000, 576000, 921600,
	1000000, 1152000, 1500000, 2000000, 2500000, 3000000, 3500000, 4000000,
}

var dataBits = []int{5, 6, 7, 8}

// BaudRates returns the supported baud rates in ascending order.
func BaudRates() []int { return slices.Clone(baudRates) }

// DataBitsValues returns the supported data bit widths.
func DataBitsValues() []int { return slices.Clone(dataBits) }

// Parities returns every supported parity mode.
func Parities() []Parity {
	return []Parity{ParityNone, ParityOdd, ParityEven, ParityMark, ParitySpace}
}

// StopBitsValues returns every supported stop bit setting.
func StopBitsValues() []StopBits {
	return []StopBits{StopBitsOne, StopBitsOnePointFive, StopBitsTwo}
}

// Settings holds the configuration for one connection session.
// It is a value type: the manager keeps its own copy for the lifetime of a session.
type Settings struct {
	Port        string
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	ReadTimeout time.Duration
}

// Option is a functional option for configuring Settings
type Option func(*Settings) error

// DefaultSettings returns 9600 8N1 with a 500ms read timeout and no port.
func DefaultSettings() Settings {
	return Settings{
		BaudRate:    9600,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		ReadTimeout: 500 * time.Millisecond,
	}
}

// NewSettings applies opts on top of DefaultSettings for the given port.
func NewSettings(port string, opts ...Option) (Settings, error) {
	s := DefaultSettings()
	s.Port = port
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(s *Settings) error {
		if !slices.Contains(baudRates, rate) {
			return ErrInvalidBaudRate
		}
		s.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(s *Settings) error {
		if !slices.Contains(dataBits, bits) {
			return ErrInvalidConfig
		}
		s.DataBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(p Parity) Option {
	return func(s *Settings) error {
		if p < ParityNone || p > ParitySpace {
			return ErrInvalidConfig
		}
		s.Parity = p
		return nil
	}
}

// WithStopBits sets the stop bits
func WithStopBits(bits StopBits) Option {
	return func(s *Settings) error {
		if bits < StopBitsOne || bits > StopBitsTwo {
			return ErrInvalidConfig
		}
		s.StopBits = bits
		return nil
	}
}

// WithReadTimeout sets how long one read may block before returning empty
func WithReadTimeout(d time.Duration) Option {
	return func(s *Settings) error {
		if d <= 0 || d > MaxReadTimeout {
			return ErrInvalidConfig
		}
		s.ReadTimeout = d
		return nil
	}
}

// Validate reports the first field that is outside the supported set.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Port) == "" {
		return fmt.Errorf("port name is empty: %w", ErrInvalidConfig)
	}
	if !slices.Contains(baudRates, s.BaudRate) {
		return fmt.Errorf("baud rate %d: %w", s.BaudRate, ErrInvalidBaudRate)
	}
	if !slices.Contains(dataBits, s.DataBits) {
		return fmt.Errorf("data bits %d: %w", s.DataBits, ErrInvalidConfig)
	}
	if s.Parity < ParityNone || s.Parity > ParitySpace {
		return fmt.Errorf("parity %d: %w", int(s.Parity), ErrInvalidConfig)
	}
	if s.StopBits < StopBitsOne || s.StopBits > StopBitsTwo {
		return fmt.Errorf("stop bits %d: %w", int(s.StopBits), ErrInvalidConfig)
	}
	if s.ReadTimeout <= 0 || s.ReadTimeout > MaxReadTimeout {
		return fmt.Errorf("read timeout %v: %w", s.ReadTimeout, ErrInvalidConfig)
	}
	return nil
}

// Valid is shorthand for Validate() == nil.
func (s Settings) Valid() bool {
	return s.Validate() == nil
}

// Frame renders the character framing, e.g. "8N1".
func (s Settings) Frame() string {
	return fmt.Sprintf("%d%s%s", s.DataBits, s.Parity.Letter(), s.StopBits)
}

func (s Settings) String() string {
	return fmt.Sprintf("%s %d %s", s.Port, s.BaudRate, s.Frame())
}
