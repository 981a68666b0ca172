package models

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/components"
	"github.com/google/uuid"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// SessionModel is the state shared by TUI commands that drive a Manager.
// All methods are meant to be called from the bubbletea update loop.
type SessionModel struct {
	manager    *comport.Manager
	dispatcher *comport.Dispatcher

	// Settings for the next Start; only changed while closed
	settings comport.Settings
	newline  string

	rawData    []components.Entry
	maxEntries int
	lastFault  *comport.FaultEvent
	ready      bool

	inputMode InputMode
	mu        sync.RWMutex
}

func NewSessionModel(settings comport.Settings, newline string) *SessionModel {
	return &SessionModel{
		settings:   settings,
		newline:    newline,
		rawData:    make([]components.Entry, 0),
		maxEntries: components.DefaultMaxLines,
		inputMode:  InputModeNormal,
	}
}

// Attach wires the manager and the dispatcher that feeds this model
func (m *SessionModel) Attach(manager *comport.Manager, dispatcher *comport.Dispatcher) {
	m.manager = manager
	m.dispatcher = dispatcher
}

// Context is bound to the dispatcher, so notifications raised by calls made
// with it are handled before the call returns.
func (m *SessionModel) Context() context.Context {
	return m.dispatcher.Bind(context.Background())
}

// Connect starts a session with the current settings. On failure the
// OpenFailure has already been handled when Connect returns.
func (m *SessionModel) Connect() bool {
	return m.manager.Start(m.Context(), m.settings)
}

// Disconnect stops the session. It waits at most one read timeout.
func (m *SessionModel) Disconnect() {
	m.manager.Stop()
}

func (m *SessionModel) IsConnected() bool {
	return m.manager != nil && m.manager.State() == comport.StateListening
}

func (m *SessionModel) State() comport.State {
	if m.manager == nil {
		return comport.StateClosed
	}
	return m.manager.State()
}

// SessionID identifies the open session, or is uuid.Nil while closed
func (m *SessionModel) SessionID() uuid.UUID {
	if m.manager == nil {
		return uuid.Nil
	}
	return m.manager.SessionID()
}

// IsStale reports whether ev belongs to a session that has since been
// replaced by the one now open.
func (m *SessionModel) IsStale(ev comport.FaultEvent) bool {
	if ev.SessionID == uuid.Nil {
		return false
	}
	current := m.SessionID()
	return current != uuid.Nil && current != ev.SessionID
}

func (m *SessionModel) Stats() comport.Stats {
	return m.manager.Stats()
}

// ToggleRx flips data delivery and returns the new setting
func (m *SessionModel) ToggleRx() bool {
	enabled := !m.dispatcher.DeliveryEnabled()
	m.dispatcher.SetDeliveryEnabled(enabled)
	return enabled
}

func (m *SessionModel) RxEnabled() bool {
	return m.dispatcher != nil && m.dispatcher.DeliveryEnabled()
}

// Settings returns the settings the next Connect will use
func (m *SessionModel) Settings() comport.Settings {
	return m.settings
}

// Teardown releases the port and stops delivery
func (m *SessionModel) Teardown() {
	if m.manager != nil {
		m.manager.Teardown()
	}
	if m.dispatcher != nil {
		m.dispatcher.Close()
	}
}

// Transmit sends a submission and returns the terminal entry describing it.
// Write faults are handled synchronously, so the status is final.
func (m *SessionModel) Transmit(sub components.Submission) components.Entry {
	entry := components.Entry{
		Timestamp: time.Now(),
		Data:      sub.Display(),
		IsTX:      true,
		Status:    components.StatusWritten,
	}

	// Read faults may land concurrently, so only write faults count
	before := m.manager.Stats().WriteFaults
	if sub.Mode == components.SendingModeHex {
		m.manager.Write(m.Context(), sub.Raw)
	} else {
		m.manager.Send(m.Context(), sub.Text+m.newline)
	}
	if m.manager.Stats().WriteFaults != before {
		entry.Status = components.StatusError
	}
	return entry
}

// The Cycle methods step a setting to its next supported value. They refuse
// while a port is open, since a session's settings are fixed.

func (m *SessionModel) CycleBaudRate() bool {
	if m.IsConnected() {
		return false
	}
	m.settings.BaudRate = next(comport.BaudRates(), m.settings.BaudRate)
	return true
}

func (m *SessionModel) CycleDataBits() bool {
	if m.IsConnected() {
		return false
	}
	m.settings.DataBits = next(comport.DataBitsValues(), m.settings.DataBits)
	return true
}

func (m *SessionModel) CycleParity() bool {
	if m.IsConnected() {
		return false
	}
	m.settings.Parity = next(comport.Parities(), m.settings.Parity)
	return true
}

func (m *SessionModel) CycleStopBits() bool {
	if m.IsConnected() {
		return false
	}
	m.settings.StopBits = next(comport.StopBitsValues(), m.settings.StopBits)
	return true
}

// next returns the value after cur, wrapping around; unknown values restart the list
func next[T comparable](values []T, cur T) T {
	i := slices.Index(values, cur)
	return values[(i+1)%len(values)]
}

func (m *SessionModel) SetFault(ev comport.FaultEvent) {
	m.lastFault = &ev
}

func (m *SessionModel) LastFault() *comport.FaultEvent {
	return m.lastFault
}

func (m *SessionModel) IsReady() bool {
	return m.ready
}

func (m *SessionModel) SetReady(ready bool) {
	m.ready = ready
}

// SetMaxEntries caps the stored history, dropping the oldest entries first
func (m *SessionModel) SetMaxEntries(n int) {
	m.maxEntries = n
	m.trim()
}

func (m *SessionModel) GetRawData() []components.Entry {
	return m.rawData
}

func (m *SessionModel) AddRawData(entry components.Entry) {
	m.rawData = append(m.rawData, entry)
	m.trim()
}

func (m *SessionModel) trim() {
	if m.maxEntries > 0 && len(m.rawData) > m.maxEntries {
		m.rawData = append(m.rawData[:0:0], m.rawData[len(m.rawData)-m.maxEntries:]...)
	}
}

func (m *SessionModel) ClearData() {
	m.rawData = make([]components.Entry, 0)
}

func (m *SessionModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *SessionModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *SessionModel) IsInInsertMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode == InputModeInsert
}
