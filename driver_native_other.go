//go:build !linux

package comport

import "fmt"

// NativeOpener is only implemented on Linux.
type NativeOpener struct{}

// Open always fails on this platform
func (NativeOpener) Open(s Settings) (Port, error) {
	return nil, fmt.Errorf("%w: native driver requires linux", ErrUnknownDriver)
}
