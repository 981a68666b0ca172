/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/components"
	"github.com/allbin/comport/internal/tui/keys"
	"github.com/allbin/comport/internal/tui/models"
	"github.com/allbin/comport/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with an interactive terminal interface.

This command opens the specified serial port and shows everything it receives
while letting you send text or hex back. Features include:
- Real-time data streaming with timestamps
- Input field for sending ASCII text or hex bytes
- Hex and text display modes
- Connect/disconnect without leaving the interface (s)
- Receive toggle that keeps the port open but stops the display (r)
- Baud rate, data bits, parity and stop bits cycling while disconnected
- Last fault shown in the status bar

Example usage:
  comport connect /dev/ttyUSB0
  comport connect /dev/ttyUSB0 --baud 115200 --parity even
  comport connect COM3 --max-lines 5000
  comport connect --driver loopback LOOP0`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := sessionFrom(viper.GetViper(), args, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		maxLines, _ := cmd.Flags().GetInt("max-lines")
		rx, _ := cmd.Flags().GetBool("rx")
		noConnect, _ := cmd.Flags().GetBool("no-connect")

		// Log lines would tear through the alt screen
		if logger.GetLevel() > zerolog.DebugLevel {
			logger = zerolog.Nop()
		}

		opts := connectOptions{
			session:     sess,
			maxLines:    maxLines,
			rx:          rx,
			autoConnect: !noConnect,
		}
		if err := runConnectTUI(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Int("max-lines", components.DefaultMaxLines, "Received lines kept on screen; older ones are dropped")
	connectCmd.Flags().Bool("rx", true, "Show received data from the start (toggle with r)")
	connectCmd.Flags().Bool("no-connect", false, "Start disconnected, e.g. to adjust settings first")
}

type connectOptions struct {
	session
	maxLines    int
	rx          bool
	autoConnect bool
}

type (
	connectMsg struct{}
	tickMsg    time.Time
)

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.SessionModel
	terminal    *components.Terminal
	statusBar   *components.StatusBar
	input       *components.Input
	help        help.Model
	keys        keys.ConnectKeys
	autoConnect bool
}

func newConnectModel(opts connectOptions) *connectModel {
	m := &connectModel{
		SessionModel: models.NewSessionModel(opts.settings, opts.newline),
		terminal:     components.NewTerminal(0, 0), // Will be properly sized by WindowSizeMsg
		statusBar:    components.NewStatusBar("comport"),
		input:        components.NewInput(),
		help:         help.New(),
		keys:         keys.NewConnectKeys(),
		autoConnect:  opts.autoConnect,
	}
	m.SetMaxEntries(opts.maxLines)
	m.terminal.SetMaxLines(opts.maxLines)
	m.terminal.SetEncoding(opts.enc)
	m.statusBar.SetDisconnected()
	return m
}

func runConnectTUI(opts connectOptions) error {
	logger.Debug().Str("settings", opts.settings.String()).Msg("starting connect TUI")

	target := models.NewProgramTarget()
	m := newConnectModel(opts)

	d := comport.NewDispatcher(target, m, comport.WithDispatcherLogger(logger))
	d.SetDeliveryEnabled(opts.rx)
	m.Attach(comport.NewManager(d, opts.managerOptions()...), d)
	defer m.Teardown()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	target.Attach(p)

	_, err := p.Run()
	return err
}

// OnDataReceived implements comport.Handler
func (m *connectModel) OnDataReceived(_ context.Context, ev comport.DataEvent) {
	entry := components.Entry{
		Timestamp: ev.Time,
		Data:      ev.Bytes(),
	}
	m.AddRawData(entry)
	m.terminal.AddMessage(entry)
}

// OnFault implements comport.Handler
func (m *connectModel) OnFault(_ context.Context, ev comport.FaultEvent) {
	// A read fault from an earlier session must not touch the open one
	if m.IsStale(ev) {
		m.addNote(ev.Time, ev.Message())
		return
	}
	m.SetFault(ev)
	m.statusBar.SetFault(ev.Message())
	m.addNote(ev.Time, ev.Message())

	// Open and read faults leave the port closed
	if ev.Kind != comport.WriteFailure {
		m.statusBar.SetDisconnected()
		m.keys.LockSettings(false)
	}
}

func (m *connectModel) addNote(at time.Time, note string) {
	if at.IsZero() {
		at = time.Now()
	}
	entry := components.Entry{Timestamp: at, Note: note}
	m.AddRawData(entry)
	m.terminal.AddMessage(entry)
}

func (m *connectModel) connect() {
	if m.IsConnected() {
		return
	}
	m.statusBar.SetConnecting()
	if m.Connect() {
		m.statusBar.SetConnected()
		m.keys.LockSettings(true)
	}
}

func (m *connectModel) disconnect() {
	m.Disconnect()
	m.statusBar.SetDisconnected()
	m.keys.LockSettings(false)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *connectModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if m.autoConnect {
		cmds = append(cmds, func() tea.Msg { return connectMsg{} })
	}
	return tea.Batch(cmds...)
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Input area height (includes border) plus single line status bar
		verticalMarginHeight := 3 + 1
		m.terminal.SetSize(msg.Width, msg.Height-verticalMarginHeight)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)

	case models.DispatchMsg:
		msg.Run()

	case connectMsg:
		m.connect()

	case tickMsg:
		// Redraw for the clock and byte counters
		cmds = append(cmds, tick())

	case tea.KeyMsg:
		if m.IsInInsertMode() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Enter):
				m.submit()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Up):
				m.input.NavigateHistoryUp()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Down):
				m.input.NavigateHistoryDown()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
				return m, tea.Batch(cmds...)
			}
		} else {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit

			case key.Matches(msg, m.keys.InsertMode):
				m.SetInputMode(models.InputModeInsert)
				m.input.Focus()
				return m, tea.Batch(cmds...)

			case key.Matches(msg, m.keys.Connect):
				if m.IsConnected() {
					m.disconnect()
				} else {
					m.connect()
				}

			case key.Matches(msg, m.keys.ToggleRx):
				m.ToggleRx()

			case key.Matches(msg, m.keys.CycleBaud):
				m.CycleBaudRate()
			case key.Matches(msg, m.keys.CycleDataBits):
				m.CycleDataBits()
			case key.Matches(msg, m.keys.CycleParity):
				m.CycleParity()
			case key.Matches(msg, m.keys.CycleStopBits):
				m.CycleStopBits()

			case key.Matches(msg, m.keys.Clear):
				m.ClearData()
				m.terminal.Clear()
				m.statusBar.ClearFault()

			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll

			case key.Matches(msg, m.keys.ToggleHex):
				m.terminal.ToggleHex()
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())

			case key.Matches(msg, m.keys.ToggleASCII):
				m.terminal.ToggleASCII()
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())

			case key.Matches(msg, m.keys.Up):
				m.terminal.ScrollUp()
			case key.Matches(msg, m.keys.Down):
				m.terminal.ScrollDown()
			case key.Matches(msg, m.keys.GotoTop):
				m.terminal.GotoTop()
			case key.Matches(msg, m.keys.GotoBottom):
				m.terminal.GotoBottom()

			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
			}
		}
	}

	// Update components (only update input in insert mode)
	var cmd tea.Cmd
	if m.IsInInsertMode() {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update terminal viewport for window resize messages
	if _, ok := msg.(tea.WindowSizeMsg); ok {
		_, cmd = m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit sends the input line. A closed port is reported as a write fault.
func (m *connectModel) submit() {
	sub, err := m.input.Submit()
	if errors.Is(err, components.ErrEmptyInput) {
		return
	}
	if err != nil {
		m.addNote(time.Now(), fmt.Sprintf("Invalid hex input: %v", err))
		return
	}

	entry := m.Transmit(sub)
	m.AddRawData(entry)
	m.terminal.AddMessage(entry)
}

func (m *connectModel) View() string {
	var content string
	if m.IsReady() {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	input := m.input.ViewWithMode(m.IsInInsertMode())

	stats := m.Stats()
	m.statusBar.SetConnectionInfo(&components.ConnectionInfo{
		Settings: m.Settings(),
		State:    m.State(),
		RxOn:     m.RxEnabled(),
		Received: stats.BytesReceived,
		Sent:     stats.BytesSent,
	})
	statusBar := m.statusBar.ComprehensiveStatusBar(
		m.GetInputMode().String(),
		m.input.GetSendingMode().String(),
		time.Now().Format("15:04:05"),
	)

	contentWithBorder := styles.ContentBorderStyle.Render(content)

	if m.help.ShowAll {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			contentWithBorder,
			styles.HelpStyle.Render(m.help.View(m.keys)),
			input,
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		input,
		statusBar,
	)
}
