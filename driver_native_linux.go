//go:build linux

package comport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// NativeOpener opens ports directly through termios ioctls.
type NativeOpener struct{}

// nativePort is a raw-mode tty read with poll(2)
type nativePort struct {
	mu      sync.RWMutex
	fd      int
	timeout time.Duration
	closed  bool
}

var _ Port = (*nativePort)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// Open opens the tty in raw mode and takes exclusive access to it
func (NativeOpener) Open(s Settings) (Port, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	fd, err := unix.Open(s.Port, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, wrapOpenError(s.Port, classifyErrno(err), err)
	}

	// A second opener gets EBUSY instead of sharing the line
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, wrapOpenError(s.Port, classifyErrno(err), err)
	}

	if err := configurePort(fd, s); err != nil {
		unix.Close(fd)
		return nil, wrapOpenError(s.Port, nil, err)
	}

	return &nativePort{fd: fd, timeout: s.ReadTimeout}, nil
}

// pollMillis rounds d up to whole milliseconds so short timeouts still block
func pollMillis(d time.Duration) int {
	ms := int((d + time.Millisecond - 1) / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}

func classifyErrno(err error) error {
	switch {
	case errors.Is(err, unix.EBUSY):
		return ErrDeviceInUse
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	}
	return nil
}

// configurePort applies the termios produced by termiosFor
func configurePort(fd int, s Settings) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	if err := termiosFor(termios, s); err != nil {
		return err
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// termiosFor rewrites t for raw mode with the framing in s
func termiosFor(t *unix.Termios, s Settings) error {
	baudRate, err := getBaudRate(s.BaudRate)
	if err != nil {
		return err
	}

	// Raw mode, receiver on, modem lines ignored
	t.Cflag = unix.CREAD | unix.CLOCAL
	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0

	// Reads are bounded by poll, never by VTIME
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	t.Cflag = (t.Cflag &^ unix.CBAUD) | baudRate
	t.Ispeed = baudRate
	t.Ospeed = baudRate

	switch s.DataBits {
	case 5:
		t.Cflag |= unix.CS5
	case 6:
		t.Cflag |= unix.CS6
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	default:
		return fmt.Errorf("data bits %d: %w", s.DataBits, ErrInvalidConfig)
	}

	switch s.StopBits {
	case StopBitsOne:
	case StopBitsTwo:
		t.Cflag |= unix.CSTOPB
	default:
		// termios has no 1.5 stop bit setting
		return fmt.Errorf("stop bits %v: %w", s.StopBits, ErrInvalidConfig)
	}

	switch s.Parity {
	case ParityNone:
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark:
		t.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		t.Cflag |= unix.PARENB | unix.CMSPAR
	default:
		return fmt.Errorf("parity %v: %w", s.Parity, ErrInvalidConfig)
	}

	if t.Cflag&unix.PARENB != 0 {
		t.Iflag |= unix.INPCK
	}

	return nil
}

// Close closes the serial port
func (p *nativePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	err := unix.Close(p.fd)
	p.closed = true
	return err
}

// Read waits up to the read timeout for input
func (p *nativePort) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	ready, err := unix.Poll(fds, pollMillis(p.timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if ready == 0 {
		return 0, nil
	}

	if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 && fds[0].Revents&unix.POLLIN == 0 {
		return 0, ErrDisconnected
	}

	n, err := unix.Read(p.fd, buf)
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, nil
	case errors.Is(err, unix.EIO):
		return 0, fmt.Errorf("%w: %w", ErrDisconnected, err)
	case err != nil:
		return 0, err
	case n == 0:
		// readable but empty means the line hung up
		return 0, ErrDisconnected
	}
	return n, nil
}

// Write writes data to the serial port, waiting out a full kernel buffer
func (p *nativePort) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	written := 0
	for written < len(data) {
		n, err := unix.Write(p.fd, data[written:])
		if n > 0 {
			written += n
		}
		switch {
		case errors.Is(err, unix.EAGAIN):
			fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLOUT}}
			if _, err := unix.Poll(fds, pollMillis(p.timeout)); err != nil && !errors.Is(err, unix.EINTR) {
				return written, err
			}
			if fds[0].Revents&unix.POLLOUT == 0 {
				return written, ErrShortWrite
			}
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EIO):
			return written, fmt.Errorf("%w: %w", ErrDisconnected, err)
		case err != nil:
			return written, err
		}
	}
	return written, nil
}
