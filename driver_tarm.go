package comport

import (
	"errors"
	"fmt"
	"io"

	"github.com/tarm/serial"
)

// TarmOpener opens ports with github.com/tarm/serial.
type TarmOpener struct{}

// Open opens s.Port. tarm/serial only supports whole deciseconds of read
// timeout, so shorter timeouts are rounded up by the library.
func (TarmOpener) Open(s Settings) (Port, error) {
	cfg, err := tarmConfig(s)
	if err != nil {
		return nil, err
	}

	p, err := serial.OpenPort(cfg)
	if err != nil {
		var sentinel error
		switch {
		case errors.Is(err, serial.ErrBadSize), errors.Is(err, serial.ErrBadStopBits), errors.Is(err, serial.ErrBadParity):
			sentinel = ErrInvalidConfig
		}
		return nil, wrapOpenError(s.Port, sentinel, err)
	}
	return &tarmPort{port: p}, nil
}

// tarmConfig converts Settings into a serial.Config
func tarmConfig(s Settings) (*serial.Config, error) {
	cfg := &serial.Config{
		Name:        s.Port,
		Baud:        s.BaudRate,
		ReadTimeout: s.ReadTimeout,
		Size:        byte(s.DataBits),
	}

	switch s.Parity {
	case ParityNone:
		cfg.Parity = serial.ParityNone
	case ParityOdd:
		cfg.Parity = serial.ParityOdd
	case ParityEven:
		cfg.Parity = serial.ParityEven
	case ParityMark:
		cfg.Parity = serial.ParityMark
	case ParitySpace:
		cfg.Parity = serial.ParitySpace
	default:
		return nil, fmt.Errorf("parity %v: %w", s.Parity, ErrInvalidConfig)
	}

	switch s.StopBits {
	case StopBitsOne:
		cfg.StopBits = serial.Stop1
	case StopBitsOnePointFive:
		cfg.StopBits = serial.Stop1Half
	case StopBitsTwo:
		cfg.StopBits = serial.Stop2
	default:
		return nil, fmt.Errorf("stop bits %v: %w", s.StopBits, ErrInvalidConfig)
	}

	return cfg, nil
}

type tarmPort struct {
	port *serial.Port
}

// Read maps the zero-byte io.EOF that tarm/serial returns on a VTIME
// expiry to the (0, nil) timeout contract.
func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *tarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *tarmPort) Close() error {
	return p.port.Close()
}
