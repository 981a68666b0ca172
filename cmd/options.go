/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/allbin/comport"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// optionsCmd represents the options command
var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show the supported port settings and the ones currently in effect",
	Long: `Show every value a port setting can take, together with the value that
the current flags, environment and config file resolve to.

Example usage:
  comport options
  COMPORT_BAUD=115200 comport options`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printOptions(cmd.OutOrStdout(), viper.GetViper())
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}

func printOptions(w io.Writer, v *viper.Viper) {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))

	baud := make([]string, 0, len(comport.BaudRates()))
	for _, b := range comport.BaudRates() {
		baud = append(baud, strconv.Itoa(b))
	}
	dataBits := make([]string, 0, 4)
	for _, b := range comport.DataBitsValues() {
		dataBits = append(dataBits, strconv.Itoa(b))
	}
	parities := make([]string, 0, 5)
	for _, p := range comport.Parities() {
		parities = append(parities, p.String())
	}
	stopBits := make([]string, 0, 3)
	for _, s := range comport.StopBitsValues() {
		stopBits = append(stopBits, s.String())
	}

	rows := []struct {
		name    string
		current string
		values  []string
	}{
		{"baud", v.GetString("baud"), baud},
		{"data-bits", v.GetString("data-bits"), dataBits},
		{"parity", v.GetString("parity"), parities},
		{"stop-bits", v.GetString("stop-bits"), stopBits},
		{"read-timeout", v.GetDuration("read-timeout").String(), []string{fmt.Sprintf("(0, %v]", comport.MaxReadTimeout)}},
		{"driver", v.GetString("driver"), comport.Drivers()},
		{"encoding", v.GetString("encoding"), comport.Encodings()},
		{"newline", v.GetString("newline"), []string{"none", "lf", "cr", "crlf"}},
	}

	for _, row := range rows {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-13s", row.name)), row.current)
		fmt.Fprintf(w, "              %s\n", strings.Join(row.values, " "))
	}

	if port := v.GetString("port"); port != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-13s", "port")), port)
	}
}
