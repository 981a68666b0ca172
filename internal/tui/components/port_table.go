package components

import (
	"strings"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyPort        = "port"
	columnKeyType        = "type"
	columnKeyDescription = "description"
	columnKeyUSB         = "usb"
	columnKeySerial      = "serial"
)

// PortTable renders discovered ports as a static table
type PortTable struct {
	table table.Model
	rows  int
}

func NewPortTable(ports []*comport.PortInfo, width int) *PortTable {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyType, "Type", 16),
		table.NewFlexColumn(columnKeyDescription, "Description", 1),
		table.NewColumn(columnKeyUSB, "VID:PID", 10),
		table.NewColumn(columnKeySerial, "Serial", 14),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, info := range ports {
		rows = append(rows, table.NewRow(portRowData(info)))
	}

	t := table.New(columns).
		WithRows(rows).
		SortByAsc(columnKeyPort).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(colors.Text).BorderForeground(colors.Surface2).Align(lipgloss.Left)).
		WithTargetWidth(clampWidth(width))

	return &PortTable{table: t, rows: len(rows)}
}

func portRowData(info *comport.PortInfo) table.RowData {
	usb := ""
	if info.IsUSB && (info.VendorID != "" || info.ProductID != "") {
		usb = strings.ToLower(info.VendorID + ":" + info.ProductID)
	}
	return table.RowData{
		columnKeyPort:        info.Path,
		columnKeyType:        PortType(info.Name),
		columnKeyDescription: info.Description,
		columnKeyUSB:         usb,
		columnKeySerial:      info.SerialNumber,
	}
}

func clampWidth(width int) int {
	// Ensure minimum width for proper table layout
	if width < 80 {
		return 80
	}
	return width
}

func (pt *PortTable) SetWidth(width int) {
	pt.table = pt.table.WithTargetWidth(clampWidth(width))
}

// Len returns the number of ports in the table
func (pt *PortTable) Len() int {
	return pt.rows
}

func (pt *PortTable) View() string {
	return pt.table.View()
}

// PortType returns a short classification for a device name
func PortType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(lower, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(lower, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(lower, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(lower, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(lower, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(lower, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(lower, "ttys"):
		return "Standard Serial"
	case strings.HasPrefix(lower, "com"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}
