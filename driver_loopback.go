package comport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/allbin/comport/internal/simport"
)

var (
	loopbackOnce     sync.Once
	loopbackRegistry *simport.Registry
)

// newLoopbackOpener returns an opener for in-memory devices that echo every
// write back as received data. All loopback openers share one registry, so a
// name can only be open once per process, as with a real device.
func newLoopbackOpener() Opener {
	loopbackOnce.Do(func() {
		loopbackRegistry = simport.NewRegistry(simport.WithEcho())
	})
	return simOpener(loopbackRegistry)
}

// simOpener adapts a simport.Registry to the Opener interface
func simOpener(r *simport.Registry) Opener {
	return OpenerFunc(func(s Settings) (Port, error) {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		p, err := r.Open(s.Port, s.ReadTimeout)
		if err != nil {
			var sentinel error
			if errors.Is(err, simport.ErrInUse) {
				sentinel = ErrDeviceInUse
			}
			return nil, wrapOpenError(s.Port, sentinel, err)
		}
		return &simPort{Port: p}, nil
	})
}

type simPort struct {
	*simport.Port
}

func (p *simPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if errors.Is(err, simport.ErrDisconnected) {
		return n, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return n, err
}
