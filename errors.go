package comport

import (
	"errors"
	"fmt"
	"io/fs"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrDisconnected     = errors.New("serial device disconnected")
	ErrShortWrite       = errors.New("short write to serial device")

	// Manager lifecycle errors
	ErrManagerClosed = errors.New("connection manager has been torn down")

	// Lookup errors
	ErrUnknownDriver   = errors.New("unknown serial driver")
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

// wrapOpenError attaches a sentinel to err unless it already carries one.
// Not-exist and permission errors from the OS are recognised generically.
func wrapOpenError(name string, sentinel, err error) error {
	if sentinel == nil {
		switch {
		case isSentinel(err):
			return fmt.Errorf("open %s: %w", name, err)
		case errors.Is(err, fs.ErrNotExist):
			sentinel = ErrDeviceNotFound
		case errors.Is(err, fs.ErrPermission):
			sentinel = ErrPermissionDenied
		default:
			return fmt.Errorf("open %s: %w", name, err)
		}
	}
	return fmt.Errorf("open %s: %w: %w", name, sentinel, err)
}

func isSentinel(err error) bool {
	for _, s := range []error{ErrDeviceNotFound, ErrPermissionDenied, ErrDeviceInUse, ErrInvalidBaudRate, ErrInvalidConfig} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
