// Package simport provides an in-memory serial device for tests and demos.
//
// A Registry plays the role of the operating system: it hands out at most one
// open Port per device name and remembers how many times each name was opened.
// Reads block for up to the port's timeout and return (0, nil) when nothing
// arrives, mirroring a real driver with a read timeout.
package simport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

var (
	// ErrInUse is returned by Open while another Port holds the name.
	ErrInUse = errors.New("simport: device in use")
	// ErrClosed is returned by operations on a closed Port.
	ErrClosed = errors.New("simport: port closed")
	// ErrDisconnected is the fault injected by Disconnect.
	ErrDisconnected = errors.New("simport: device disconnected")
)

// Registry tracks the simulated devices that are currently open.
type Registry struct {
	mu       sync.Mutex
	echo     bool
	open     map[string]*Port
	opens    map[string]int
	openErrs map[string]error
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithEcho makes every opened Port loop its writes back to its reads.
func WithEcho() RegistryOption {
	return func(r *Registry) { r.echo = true }
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		open:     make(map[string]*Port),
		opens:    make(map[string]int),
		openErrs: make(map[string]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FailOpen makes every later Open of name fail with err. A nil err clears it.
func (r *Registry) FailOpen(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.openErrs, name)
		return
	}
	r.openErrs[name] = err
}

// Open opens name with the given read timeout.
func (r *Registry) Open(name string, timeout time.Duration) (*Port, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.openErrs[name]; ok {
		return nil, err
	}
	if _, busy := r.open[name]; busy {
		return nil, ErrInUse
	}

	p := &Port{
		name:    name,
		timeout: timeout,
		echo:    r.echo,
		release: r.release,
	}
	p.cond = sync.NewCond(&p.mu)
	r.open[name] = p
	r.opens[name]++
	return p, nil
}

// Port returns the currently open Port for name, or nil.
func (r *Registry) Port(name string) *Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open[name]
}

// Opens reports how many times name was opened successfully.
func (r *Registry) Opens(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens[name]
}

// IsOpen reports whether name is held by an open Port.
func (r *Registry) IsOpen(name string) bool {
	return r.Port(name) != nil
}

func (r *Registry) release(p *Port) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open[p.name] == p {
		delete(r.open, p.name)
	}
}

// Port is one open simulated device.
type Port struct {
	name    string
	timeout time.Duration
	echo    bool
	release func(*Port)

	mu         sync.Mutex
	cond       *sync.Cond
	pending    bytes.Buffer
	written    bytes.Buffer
	fault      error
	writeErr   error
	writeLimit int
	closed     bool
	reads      int
}

// Name returns the device name the Port was opened with.
func (p *Port) Name() string { return p.name }

// Read returns pending bytes, the injected fault, or (0, nil) after the timeout.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reads++
	expired := false
	timer := time.AfterFunc(p.timeout, func() {
		p.mu.Lock()
		expired = true
		p.mu.Unlock()
		p.cond.Broadcast()
	})
	defer timer.Stop()

	for !p.closed && p.fault == nil && p.pending.Len() == 0 && !expired {
		p.cond.Wait()
	}

	switch {
	case p.closed:
		return 0, ErrClosed
	case p.pending.Len() > 0:
		return p.pending.Read(b)
	case p.fault != nil:
		return 0, p.fault
	}
	return 0, nil
}

// Write records b, echoing it back when the registry was built WithEcho.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.fault != nil {
		return 0, p.fault
	}

	n := len(b)
	if p.writeLimit > 0 && n > p.writeLimit {
		n = p.writeLimit
	}
	p.written.Write(b[:n])
	if p.echo {
		p.pending.Write(b[:n])
		p.cond.Broadcast()
	}
	return n, nil
}

// Close releases the device name. Closing twice returns ErrClosed.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.release(p)
	return nil
}

// Inject queues data for the next reads.
func (p *Port) Inject(data []byte) {
	p.mu.Lock()
	p.pending.Write(data)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// InjectFault makes every read after the pending bytes fail with err.
func (p *Port) InjectFault(err error) {
	p.mu.Lock()
	p.fault = err
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Disconnect is InjectFault(ErrDisconnected).
func (p *Port) Disconnect() {
	p.InjectFault(ErrDisconnected)
}

// FailWrites makes every later write fail with err. A nil err clears it.
func (p *Port) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// LimitWrites accepts at most n bytes per write; 0 removes the limit.
func (p *Port) LimitWrites(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeLimit = n
}

// Written returns a copy of everything written so far.
func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.written.Bytes())
}

// Closed reports whether Close has been called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Reads reports how many times Read was called.
func (p *Port) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}
