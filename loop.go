package comport

import (
	"context"
	"sync"
)

// Loop is a Target for consumers without an event loop of their own.
// Posted functions run in order on the goroutine that calls Run.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop returns an idle Loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It never blocks.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted functions until ctx is done, then returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		for _, fn := range l.take() {
			fn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending executes everything queued so far and returns how many ran.
func (l *Loop) RunPending() int {
	fns := l.take()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := l.queue
	l.queue = nil
	return fns
}
