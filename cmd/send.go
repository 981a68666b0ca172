/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/tui/components"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] [port]",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port and optionally wait for a reply.

Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | comport send /dev/ttyUSB0
- Interactive mode: comport send /dev/ttyUSB0 (prompts for input)

Text is encoded with --encoding and terminated with --newline. With --hex the
data is parsed as hex bytes and sent as is.

Example usage:
  comport send "Hello World" /dev/ttyUSB0
  comport send "AT+GMR" /dev/ttyUSB0 --newline crlf --wait 500ms
  comport send --hex "02 06 00 03" /dev/ttyUSB0
  echo "test" | comport send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		portIndex := 1

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portIndex = 0
			// Check if we have stdin data
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				// No pipe input, use interactive mode
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
		}

		sess, err := sessionFrom(viper.GetViper(), args, portIndex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		hexMode, _ := cmd.Flags().GetBool("hex")
		wait, _ := cmd.Flags().GetDuration("wait")

		req := sendRequest{session: sess, text: data, wait: wait}
		if hexMode {
			req.raw, err = components.ParseHex(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
		}

		if err := sendData(cmd.Context(), cmd.OutOrStdout(), req); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("wait", "w", 0, "Print whatever the device replies within this long")
}

func promptForData() string {
	// Styled prompt
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

type sendRequest struct {
	session
	text string
	raw  []byte // set in hex mode, sent instead of text
	wait time.Duration
}

func sendData(ctx context.Context, out io.Writer, req sendRequest) error {
	// Styled output
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	var (
		fault error
		reply strings.Builder
	)
	loop := comport.NewLoop()
	d := comport.NewDispatcher(loop, comport.HandlerFuncs{
		Data: func(_ context.Context, ev comport.DataEvent) {
			reply.WriteString(comport.DecodeText(req.enc, ev.Bytes()))
		},
		Fault: func(_ context.Context, ev comport.FaultEvent) {
			if fault == nil {
				fault = ev
			}
		},
	}, comport.WithDispatcherLogger(logger))
	defer d.Close()

	m := comport.NewManager(d, req.managerOptions()...)
	defer m.Teardown()

	bound := d.Bind(ctx)

	fmt.Fprintf(out, "%s Opening %s...\n", infoStyle.Render("⚡"), req.settings)
	if !m.Start(bound, req.settings) {
		return fault
	}
	fmt.Fprintf(out, "%s Connected successfully\n", successStyle.Render("✓"))

	var payload []byte
	if req.raw != nil {
		payload = req.raw
		m.Write(bound, payload)
	} else {
		text := req.text + req.newline
		payload = []byte(text)
		m.Send(bound, text)
	}
	if fault != nil {
		return fault
	}
	sent := m.Stats().BytesSent
	fmt.Fprintf(out, "%s Successfully sent %d bytes\n", successStyle.Render("✓"), sent)
	fmt.Fprintf(out, "%s Data: %s\n", infoStyle.Render("📋"), preview(payload))

	if req.wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, req.wait)
		defer cancel()
		_ = loop.Run(waitCtx)
		m.Stop()
		d.Flush()
		loop.RunPending()

		if reply.Len() > 0 {
			fmt.Fprintf(out, "%s Reply: %s\n", infoStyle.Render("📥"), preview([]byte(reply.String())))
		} else {
			fmt.Fprintf(out, "%s No reply within %v\n", infoStyle.Render("📥"), req.wait)
		}
	}
	return fault
}

// preview shows the first 50 bytes with non-printable characters replaced
func preview(data []byte) string {
	s := string(data)
	if len(s) > 50 {
		s = s[:50] + "..."
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, s)
}
