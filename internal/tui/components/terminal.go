package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/encoding"
)

// DefaultMaxLines is how many lines a Terminal keeps unless told otherwise
const DefaultMaxLines = 1000

type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	data      []string
	maxLines  int
}

func NewTerminal(width, height int) *Terminal {
	vp := viewport.New(width, height)
	return &Terminal{
		viewport:  vp,
		formatter: NewDataFormatter(true, true), // Default: show both hex and ASCII
		data:      make([]string, 0),
		maxLines:  DefaultMaxLines,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

// SetMaxLines caps the history; older lines are dropped first. n <= 0 means no cap.
func (t *Terminal) SetMaxLines(n int) {
	t.maxLines = n
	t.trim()
	t.render()
}

func (t *Terminal) SetEncoding(enc encoding.Encoding) {
	t.formatter.SetEncoding(enc)
}

func (t *Terminal) GetViewport() viewport.Model {
	return t.viewport
}

// Lines returns the number of lines currently held
func (t *Terminal) Lines() int {
	return len(t.data)
}

func (t *Terminal) AddMessage(msg Entry) {
	t.data = append(t.data, t.formatter.FormatMessage(msg))
	t.trim()
	t.render()
}

// RefreshDisplayWithRawData re-renders every line, e.g. after a display mode change
func (t *Terminal) RefreshDisplayWithRawData(rawData []Entry) {
	t.data = t.formatter.FormatMessages(rawData)
	t.trim()
	t.render()
}

func (t *Terminal) trim() {
	if t.maxLines > 0 && len(t.data) > t.maxLines {
		t.data = append(t.data[:0:0], t.data[len(t.data)-t.maxLines:]...)
	}
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.data, "\n"))
	// Force viewport to bottom to show the latest message
	t.viewport.GotoBottom()
}

func (t *Terminal) Clear() {
	t.data = make([]string, 0)
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
}

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

func (t *Terminal) ScrollUp() {
	t.viewport.LineUp(1)
}

func (t *Terminal) ScrollDown() {
	t.viewport.LineDown(1)
}

func (t *Terminal) GotoTop() {
	t.viewport.GotoTop()
}

func (t *Terminal) GotoBottom() {
	t.viewport.GotoBottom()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Only pass certain message types to viewport to prevent it from consuming our key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
