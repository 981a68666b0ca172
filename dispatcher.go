package comport

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Target is the execution context a consumer wants its callbacks on.
// Post arranges for fn to run there; it may block until accepted.
type Target interface {
	Post(fn func())
}

// Handler receives notifications on the consumer's execution context.
type Handler interface {
	OnDataReceived(ctx context.Context, ev DataEvent)
	OnFault(ctx context.Context, ev FaultEvent)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Data  func(ctx context.Context, ev DataEvent)
	Fault func(ctx context.Context, ev FaultEvent)
}

func (h HandlerFuncs) OnDataReceived(ctx context.Context, ev DataEvent) {
	if h.Data != nil {
		h.Data(ctx, ev)
	}
}

func (h HandlerFuncs) OnFault(ctx context.Context, ev FaultEvent) {
	if h.Fault != nil {
		h.Fault(ctx, ev)
	}
}

type boundKey struct{}

// Dispatcher moves notifications from the read goroutine onto a Target.
//
// Deliver never waits for the consumer: notifications raised off the
// consumer's context go into an unbounded FIFO that a single pump goroutine
// drains in order. A notification raised on the consumer's context, as
// identified by a context returned from Bind, is handled synchronously.
type Dispatcher struct {
	target  Target
	handler Handler
	log     zerolog.Logger
	ctx     context.Context

	mu     sync.Mutex
	queue  []Notification
	closed bool
	wake   chan struct{}
	done   chan struct{}

	// postMu keeps the pump and Flush posting in queue order
	postMu sync.Mutex

	enabled atomic.Bool
	dropped atomic.Uint64
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger used for dropped notifications.
func WithDispatcherLogger(l zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher starts a dispatcher that invokes handler via target.
func NewDispatcher(target Target, handler Handler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		target:  target,
		handler: handler,
		log:     zerolog.Nop(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx = d.Bind(context.Background())
	d.enabled.Store(true)

	go d.pump()
	return d
}

// Bind returns a context that marks calls as made from the consumer's
// execution context. Handlers always receive a bound context.
func (d *Dispatcher) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, boundKey{}, d)
}

// Bound reports whether ctx was returned by d.Bind.
func (d *Dispatcher) Bound(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(boundKey{}).(*Dispatcher)
	return owner == d
}

// SetDeliveryEnabled turns delivery of data events on or off. Fault events
// are always delivered. Data arriving while disabled is dropped, not buffered.
func (d *Dispatcher) SetDeliveryEnabled(enabled bool) {
	d.enabled.Store(enabled)
	d.log.Debug().Bool("enabled", enabled).Msg("data delivery toggled")
}

// DeliveryEnabled reports the current delivery flag.
func (d *Dispatcher) DeliveryEnabled() bool {
	return d.enabled.Load()
}

// Dropped returns how many data events were discarded while delivery was disabled.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Deliver hands n to the consumer. It returns without waiting unless ctx is bound.
func (d *Dispatcher) Deliver(ctx context.Context, n Notification) {
	if !d.accept(n) {
		return
	}

	if d.Bound(ctx) {
		d.invoke(n)
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, n)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued notifications not yet posted.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops the pump. Queued notifications are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.queue = nil
	close(d.done)
}

func (d *Dispatcher) pump() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for d.postNext() {
		}
	}
}

func (d *Dispatcher) postNext() bool {
	d.postMu.Lock()
	defer d.postMu.Unlock()
	n, ok := d.pop()
	if !ok {
		return false
	}
	d.target.Post(func() { d.invoke(n) })
	return true
}

// Flush posts every queued notification to the target before returning and
// reports how many it posted. It waits while the pump is blocked in Post, so
// it must not be called from a Target whose Post waits for the caller.
func (d *Dispatcher) Flush() int {
	d.postMu.Lock()
	defer d.postMu.Unlock()
	var posted int
	for {
		n, ok := d.pop()
		if !ok {
			return posted
		}
		d.target.Post(func() { d.invoke(n) })
		posted++
	}
}

func (d *Dispatcher) pop() (Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.queue) == 0 {
		return nil, false
	}
	n := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return n, true
}

// accept applies the delivery flag; it runs both when queueing and when invoking
func (d *Dispatcher) accept(n Notification) bool {
	if _, isData := n.(DataEvent); isData && !d.enabled.Load() {
		d.dropped.Inc()
		return false
	}
	return true
}

func (d *Dispatcher) invoke(n Notification) {
	if !d.accept(n) {
		return
	}
	switch ev := n.(type) {
	case DataEvent:
		d.handler.OnDataReceived(d.ctx, ev)
	case FaultEvent:
		d.handler.OnFault(d.ctx, ev)
	}
}
