package comport

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Port is an open serial device handle.
//
// Read must return within the read timeout of the Settings the port was
// opened with. A read that times out with no data returns (0, nil).
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a Port for the given settings.
type Opener interface {
	Open(s Settings) (Port, error)
}

// OpenerFunc adapts a plain function to the Opener interface
type OpenerFunc func(s Settings) (Port, error)

// Open calls f(s).
func (f OpenerFunc) Open(s Settings) (Port, error) { return f(s) }

// Driver names accepted by OpenerFor
const (
	DriverBugst    = "bugst"
	DriverTarm     = "tarm"
	DriverNative   = "native"
	DriverLoopback = "loopback"
)

var drivers = map[string]func() Opener{
	DriverBugst:    func() Opener { return BugstOpener{} },
	DriverTarm:     func() Opener { return TarmOpener{} },
	DriverNative:   func() Opener { return NativeOpener{} },
	DriverLoopback: func() Opener { return newLoopbackOpener() },
}

// Drivers lists the names accepted by OpenerFor.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenerFor returns the opener registered under name. The empty name selects bugst.
func OpenerFor(name string) (Opener, error) {
	if name == "" {
		name = DriverBugst
	}
	newOpener, ok := drivers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownDriver, name, strings.Join(Drivers(), ", "))
	}
	return newOpener(), nil
}
