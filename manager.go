package comport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/text/encoding"
)

// Notifier receives notifications raised by a Manager. Deliver is called from
// the read goroutine and must not block on, or call back into, Stop.
// *Dispatcher is the standard implementation.
type Notifier interface {
	Deliver(ctx context.Context, n Notification)
}

// DefaultReadBufferSize is the size of the buffer handed to each Read.
const DefaultReadBufferSize = 1024

// Manager owns one serial port handle and the goroutine reading from it.
type Manager struct {
	notifier Notifier
	opener   Opener
	log      zerolog.Logger
	enc      encoding.Encoding
	bufSize  int
	now      func() time.Time

	// mu guards sess, last and torn. It is never held while delivering a
	// notification or while waiting for the read goroutine.
	mu   sync.Mutex
	sess *session
	last Settings
	torn bool

	received    atomic.Uint64
	sent        atomic.Uint64
	faults      atomic.Uint64
	writeFaults atomic.Uint64 // WriteFailure share of faults
}

// session is one Start..Stop lifetime of an open port
type session struct {
	id       uuid.UUID
	settings Settings
	port     Port
	opened   time.Time
	ctx      context.Context

	stopping  atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithOpener selects the driver used by Start.
func WithOpener(o Opener) ManagerOption {
	return func(m *Manager) { m.opener = o }
}

// WithLogger sets the logger for lifecycle and fault messages.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithEncoding sets the character encoding used by Send.
func WithEncoding(enc encoding.Encoding) ManagerOption {
	return func(m *Manager) { m.enc = enc }
}

// WithReadBufferSize sets the per-read buffer size.
func WithReadBufferSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.bufSize = n
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Closed manager that reports to notifier.
func NewManager(notifier Notifier, opts ...ManagerOption) *Manager {
	m := &Manager{
		notifier: notifier,
		opener:   BugstOpener{},
		log:      zerolog.Nop(),
		bufSize:  DefaultReadBufferSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns Listening while a session is open.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		return StateListening
	}
	return StateClosed
}

// Settings returns the settings of the current or most recent session.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// SessionID returns the current session ID, or uuid.Nil when Closed.
func (m *Manager) SessionID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return uuid.Nil
	}
	return m.sess.id
}

// Start opens the port described by s and starts the read goroutine.
//
// It returns false if a session is already open (nothing is reported) or if
// the port cannot be opened (an OpenFailure is reported). ctx only scopes the
// open attempt; when it is bound to the consumer's context the fault is
// delivered before Start returns.
func (m *Manager) Start(ctx context.Context, s Settings) bool {
	sess, err := m.open(ctx, s)
	if err != nil {
		m.log.Warn().Err(err).Str("port", s.Port).Msg("open failed")
		m.report(ctx, FaultEvent{Port: s.Port, Kind: OpenFailure, Err: err})
		return false
	}
	if sess == nil {
		m.log.Debug().Str("port", s.Port).Msg("start ignored, already listening")
		return false
	}

	m.log.Info().
		Str("port", s.Port).
		Int("baud", s.BaudRate).
		Str("frame", s.Frame()).
		Str("session", sess.id.String()).
		Msg("listening")

	go m.readLoop(sess)
	return true
}

// open returns (nil, nil) when a session is already open
func (m *Manager) open(ctx context.Context, s Settings) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		return nil, nil
	}
	if m.torn {
		return nil, ErrManagerClosed
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	port, err := m.opener.Open(s)
	if err != nil {
		return nil, err
	}

	sess := &session{
		id:       uuid.New(),
		settings: s,
		port:     port,
		opened:   m.now(),
		ctx:      context.Background(),
		done:     make(chan struct{}),
	}
	m.sess = sess
	m.last = s
	m.received.Store(0)
	m.sent.Store(0)
	return sess, nil
}

// Stop ends the current session and releases the port. It is a no-op when
// Closed and is safe to call from a notification handler.
func (m *Manager) Stop() {
	m.mu.Lock()
	sess := m.sess
	m.sess = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}

	sess.stopping.Store(true)
	<-sess.done
	if err := sess.close(); err != nil {
		m.log.Debug().Err(err).Str("port", sess.settings.Port).Msg("close")
	}
	m.log.Info().Str("port", sess.settings.Port).Str("session", sess.id.String()).Msg("stopped")
}

// Teardown stops any session and makes every later Start fail.
func (m *Manager) Teardown() {
	m.mu.Lock()
	m.torn = true
	m.mu.Unlock()
	m.Stop()
}

// Send encodes payload with the configured encoding and writes it.
// Failures are reported as WriteFailure faults.
func (m *Manager) Send(ctx context.Context, payload string) {
	data, err := EncodeText(m.enc, payload)
	if err != nil {
		m.mu.Lock()
		sess, port := m.sess, m.last.Port
		m.mu.Unlock()
		ev := FaultEvent{Port: port, Kind: WriteFailure, Err: err}
		if sess != nil {
			ev.SessionID = sess.id
		}
		m.report(ctx, ev)
		return
	}
	m.Write(ctx, data)
}

// Write writes raw bytes to the open port. Failures are reported as
// WriteFailure faults; a write failure does not end the session.
func (m *Manager) Write(ctx context.Context, data []byte) {
	m.mu.Lock()
	sess, port := m.sess, m.last.Port
	m.mu.Unlock()

	if sess == nil {
		m.report(ctx, FaultEvent{Port: port, Kind: WriteFailure, Err: ErrPortClosed})
		return
	}

	n, err := sess.port.Write(data)
	if n > 0 {
		m.sent.Add(uint64(n))
	}
	if err == nil && n < len(data) {
		err = fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(data))
	}
	if err != nil {
		m.log.Warn().Err(err).Str("port", sess.settings.Port).Msg("write failed")
		m.report(ctx, FaultEvent{SessionID: sess.id, Port: sess.settings.Port, Kind: WriteFailure, Err: err})
		return
	}
	m.log.Debug().Int("bytes", n).Str("port", sess.settings.Port).Msg("sent")
}

// readLoop runs until the session is stopped or a read fails
func (m *Manager) readLoop(sess *session) {
	defer close(sess.done)

	buf := make([]byte, m.bufSize)
	for !sess.stopping.Load() {
		n, err := sess.port.Read(buf)
		if n > 0 {
			m.received.Add(uint64(n))
			m.notifier.Deliver(sess.ctx, newDataEvent(sess.id, m.now(), buf[:n]))
		}
		if err == nil {
			continue
		}

		// A close racing the read is not a fault
		if sess.stopping.Load() {
			return
		}
		// Release the handle while the session is still current so a
		// concurrent Stop waits for it.
		if cerr := sess.close(); cerr != nil && !errors.Is(cerr, ErrPortClosed) {
			m.log.Debug().Err(cerr).Str("port", sess.settings.Port).Msg("close after read failure")
		}
		if !m.detach(sess) {
			return
		}
		m.log.Warn().Err(err).Str("port", sess.settings.Port).Str("session", sess.id.String()).Msg("read failed")
		m.report(sess.ctx, FaultEvent{SessionID: sess.id, Port: sess.settings.Port, Kind: ReadFailure, Err: err})
		return
	}
}

// detach clears sess as the current session; false means Stop got there first
func (m *Manager) detach(sess *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != sess {
		return false
	}
	m.sess = nil
	return true
}

func (m *Manager) report(ctx context.Context, ev FaultEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ev.Time.IsZero() {
		ev.Time = m.now()
	}
	m.faults.Inc()
	if ev.Kind == WriteFailure {
		m.writeFaults.Inc()
	}
	m.notifier.Deliver(ctx, ev)
}

// Stats is a snapshot of the manager's counters.
type Stats struct {
	State         State
	SessionID     uuid.UUID
	OpenedAt      time.Time
	BytesReceived uint64
	BytesSent     uint64
	Faults        uint64
	WriteFaults   uint64
}

// Stats returns counters for the current or most recent session. Fault
// counts accumulate over the manager's lifetime.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	st := Stats{State: StateClosed}
	if m.sess != nil {
		st.State = StateListening
		st.SessionID = m.sess.id
		st.OpenedAt = m.sess.opened
	}
	m.mu.Unlock()

	st.BytesReceived = m.received.Load()
	st.BytesSent = m.sent.Load()
	st.Faults = m.faults.Load()
	st.WriteFaults = m.writeFaults.Load()
	return st
}
