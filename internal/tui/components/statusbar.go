package components

import (
	"fmt"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionInfo is what the status bar shows about the port
type ConnectionInfo struct {
	Settings comport.Settings
	State    comport.State
	RxOn     bool
	Received uint64
	Sent     uint64
}

type StatusBar struct {
	title          string
	status         string
	fault          string
	width          int
	connectionInfo *ConnectionInfo
}

func NewStatusBar(title string) *StatusBar {
	return &StatusBar{
		title:  title,
		status: "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func (sb *StatusBar) SetConnecting() {
	sb.status = "Connecting..."
}

func (sb *StatusBar) SetConnected() {
	sb.status = "Connected - listening for data..."
	sb.fault = ""
}

func (sb *StatusBar) SetDisconnected() {
	sb.status = "Disconnected"
}

// SetFault shows the last fault until the next successful connect or ClearFault
func (sb *StatusBar) SetFault(msg string) {
	sb.fault = msg
}

func (sb *StatusBar) ClearFault() {
	sb.fault = ""
}

func (sb *StatusBar) Fault() string {
	return sb.fault
}

func (sb *StatusBar) Status() string {
	return sb.status
}

// ComprehensiveStatusBar renders a comprehensive status bar with all connection info
func (sb *StatusBar) ComprehensiveStatusBar(inputMode, sendingMode string, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	info := sb.connectionInfo
	if info == nil {
		info = &ConnectionInfo{}
	}
	listening := info.State == comport.StateListening

	// Section 1: Mode indicator (like NORMAL in nvim)
	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	modeText := "NORMAL"
	if inputMode == "INSERT" {
		modeStyle = modeStyle.Background(colors.Green)
		modeText = "INSERT"
	}
	mode := modeStyle.Render(modeText)

	// Section 2: Port name
	portName := info.Settings.Port
	if portName == "" {
		portName = sb.title
	}
	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(portName)

	// Section 3: Single character connection indicator
	var connStyle lipgloss.Style
	var connIndicator string
	switch {
	case sb.fault != "" && !listening:
		connStyle = lipgloss.NewStyle().Foreground(colors.Red)
		connIndicator = "✗"
	case listening:
		connStyle = lipgloss.NewStyle().Foreground(colors.Green)
		connIndicator = "●"
	case sb.status == "Connecting...":
		connStyle = lipgloss.NewStyle().Foreground(colors.Yellow)
		connIndicator = "○"
	default:
		connStyle = lipgloss.NewStyle().Foreground(colors.Red)
		connIndicator = "○"
	}
	connectionIndicator := connStyle.Render(connIndicator)

	state := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(info.State.String())

	// Section 4: Receive toggle
	rxStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	rxText := "RX on"
	if info.RxOn {
		rxStyle = rxStyle.Foreground(colors.RX)
	} else {
		rxStyle = rxStyle.Foreground(colors.Overlay0)
		rxText = "RX off"
	}
	rx := rxStyle.Render(rxText)

	// Section 5: Last fault
	var fault string
	if sb.fault != "" {
		fault = lipgloss.NewStyle().
			Foreground(colors.Fault).
			Padding(0, 1).
			MaxWidth(terminalWidth / 3).
			Render(sb.fault)
	}

	// Section 6: Connection info (like file type with icon)
	connInfo := fmt.Sprintf("⚡ %d baud %s ↙%d ↗%d",
		info.Settings.BaudRate,
		info.Settings.Frame(),
		info.Received,
		info.Sent)
	connectionDetails := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(connInfo)

	// Section 7: Timestamp (like position)
	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	// Create muted divider
	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	// Sending mode indicator with Tab hint (only show in INSERT mode)
	var sendingModeInfo string
	if inputMode == "INSERT" {
		sendingModeInfo = lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode))
	}

	left := []string{mode, port, connectionIndicator, state, rx}
	if sendingModeInfo != "" {
		left = append(left, sendingModeInfo)
	}
	if fault != "" {
		left = append(left, fault)
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, connectionDetails, divider, clock)

	// Calculate spacer
	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	// Combine with background
	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	content := lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide)
	return statusBarStyle.Render(content)
}
