package components

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/encoding"
)

// TX statuses
const (
	StatusPending = "PENDING"
	StatusWritten = "WRITTEN"
	StatusError   = "ERROR"
)

// Entry is one line of terminal history
type Entry struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    string // For TX entries: PENDING, WRITTEN or ERROR; empty for RX
	Note      string // Set for local messages such as faults; Data is ignored
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode DisplayMode
	enc  encoding.Encoding
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

// SetEncoding selects the character set used for the text column
func (df *DataFormatter) SetEncoding(enc encoding.Encoding) {
	df.enc = enc
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) FormatMessage(msg Entry) string {
	timestamp := msg.Timestamp.Format("15:04:05.000")

	// Style timestamp
	timestampStyled := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", timestamp))

	if msg.Note != "" {
		note := lipgloss.NewStyle().
			Foreground(colors.Fault).
			Render("! " + msg.Note)
		return fmt.Sprintf("%s %s", timestampStyled, note)
	}

	// Create styled TX/RX indicators with arrows and status
	var indicator string
	if msg.IsTX {
		var txColor lipgloss.Color
		var statusText string

		switch msg.Status {
		case StatusPending:
			txColor = colors.Yellow
			statusText = "TX ○"
		case StatusWritten:
			txColor = colors.Green
			statusText = "TX ✓"
		case StatusError:
			txColor = colors.Red
			statusText = "TX ✗"
		default:
			txColor = colors.TX
			statusText = "TX"
		}

		indicator = lipgloss.NewStyle().
			Foreground(txColor).
			Bold(true).
			Render("↗ " + statusText)
	} else {
		indicator = lipgloss.NewStyle().
			Foreground(colors.RX).
			Bold(true).
			Render("↙ RX")
	}

	var parts []string

	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}

	if df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("ASCII: %s", df.printable(msg.Data)))
	}

	// If both are disabled, show raw bytes count
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	return fmt.Sprintf("%s %s: %s", timestampStyled, indicator, strings.Join(parts, "  "))
}

// printable decodes data and replaces control characters with dots so the
// output can never carry terminal escape sequences
func (df *DataFormatter) printable(data []byte) string {
	text := comport.DecodeText(df.enc, data)
	return strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return '.'
		}
		return r
	}, text)
}

func (df *DataFormatter) FormatMessages(messages []Entry) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}
