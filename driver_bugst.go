package comport

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// BugstOpener opens ports with go.bug.st/serial. It is the default driver.
type BugstOpener struct{}

// Open opens s.Port and applies the read timeout.
func (BugstOpener) Open(s Settings) (Port, error) {
	mode, err := bugstMode(s)
	if err != nil {
		return nil, err
	}

	p, err := serial.Open(s.Port, mode)
	if err != nil {
		return nil, wrapOpenError(s.Port, classifyBugstError(err), err)
	}
	if err := p.SetReadTimeout(s.ReadTimeout); err != nil {
		p.Close()
		return nil, wrapOpenError(s.Port, ErrInvalidConfig, err)
	}
	return &bugstPort{port: p}, nil
}

// bugstMode converts Settings into a serial.Mode
func bugstMode(s Settings) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
	}

	switch s.Parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("parity %v: %w", s.Parity, ErrInvalidConfig)
	}

	switch s.StopBits {
	case StopBitsOne:
		mode.StopBits = serial.OneStopBit
	case StopBitsOnePointFive:
		mode.StopBits = serial.OnePointFiveStopBits
	case StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("stop bits %v: %w", s.StopBits, ErrInvalidConfig)
	}

	return mode, nil
}

// classifyBugstError maps a serial.PortError code onto our sentinels
func classifyBugstError(err error) error {
	var perr *serial.PortError
	if !errors.As(err, &perr) {
		return nil
	}
	switch perr.Code() {
	case serial.PortBusy:
		return ErrDeviceInUse
	case serial.PortNotFound:
		return ErrDeviceNotFound
	case serial.PermissionDenied:
		return ErrPermissionDenied
	case serial.InvalidSpeed:
		return ErrInvalidBaudRate
	case serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits, serial.InvalidTimeoutValue:
		return ErrInvalidConfig
	case serial.PortClosed:
		return ErrPortClosed
	}
	return nil
}

type bugstPort struct {
	port serial.Port
}

func (p *bugstPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err != nil {
		if sentinel := classifyBugstError(err); sentinel != nil {
			return n, fmt.Errorf("%w: %w", sentinel, err)
		}
	}
	return n, err
}

func (p *bugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *bugstPort) Close() error {
	return p.port.Close()
}
