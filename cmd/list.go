/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/components"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

Ports are enumerated by the platform (COM ports on Windows, /dev/tty* devices
elsewhere). When enumeration fails, /dev is scanned for communication-capable
devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

With --table, USB vendor/product IDs and serial numbers are shown as well.`,
	Run: func(cmd *cobra.Command, args []string) {
		infos, err := comport.ListPortInfo()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		out := cmd.OutOrStdout()
		filtered := filterPorts(infos, filterType)
		if len(filtered) == 0 {
			if filterType != "" && len(infos) > 0 {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(out, filtered)
		} else {
			renderSimple(out, filtered)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []*comport.PortInfo, filterType string) []*comport.PortInfo {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []*comport.PortInfo
	for _, info := range ports {
		name := strings.ToLower(info.Name)
		switch filterType {
		case "usb":
			if info.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, info)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") || strings.HasPrefix(name, "com") {
				filtered = append(filtered, info)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, info)
			}
		}
	}
	return filtered
}

// renderTable renders the port list in a styled static table format
func renderTable(w io.Writer, ports []*comport.PortInfo) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(ports))
	fmt.Fprintln(w, components.NewPortTable(ports, 100).View())
}

// renderSimple renders the port list in simple text format
func renderSimple(w io.Writer, ports []*comport.PortInfo) {
	for _, info := range ports {
		fmt.Fprintln(w, info.Path)
	}
}
