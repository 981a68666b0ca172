package models

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// DispatchMsg carries a notification callback into the update loop.
// The model runs it from Update.
type DispatchMsg struct {
	fn func()
}

// Run invokes the callback
func (m DispatchMsg) Run() {
	if m.fn != nil {
		m.fn()
	}
}

// ProgramTarget posts callbacks into a bubbletea program. Posts made before
// Attach wait for it.
type ProgramTarget struct {
	once    sync.Once
	ready   chan struct{}
	program *tea.Program
}

func NewProgramTarget() *ProgramTarget {
	return &ProgramTarget{ready: make(chan struct{})}
}

// Attach sets the program callbacks are sent to. Only the first call has effect.
func (t *ProgramTarget) Attach(p *tea.Program) {
	t.once.Do(func() {
		t.program = p
		close(t.ready)
	})
}

// Post sends fn to the program's update loop. After the program has exited
// Send returns immediately and fn is dropped.
func (t *ProgramTarget) Post(fn func()) {
	<-t.ready
	t.program.Send(DispatchMsg{fn: fn})
}
