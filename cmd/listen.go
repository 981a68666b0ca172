/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/comport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen [port]",
	Short: "Stream data received on a serial port to stdout",
	Long: `Stream data received on a serial port to stdout until interrupted.

Received bytes are decoded with --encoding and written as they arrive. With
--hex every chunk is printed as a line of hex bytes instead. Faults are
printed to stderr; a read fault (device unplugged) ends the command.

Example usage:
  comport listen /dev/ttyUSB0
  comport listen /dev/ttyUSB0 --baud 115200 --hex --timestamps
  comport listen /dev/ttyUSB0 --rx=false   # keep the port open, print nothing
  comport listen /dev/ttyUSB0 --duration 10s`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := sessionFrom(viper.GetViper(), args, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		rx, _ := cmd.Flags().GetBool("rx")
		hex, _ := cmd.Flags().GetBool("hex")
		timestamps, _ := cmd.Flags().GetBool("timestamps")
		duration, _ := cmd.Flags().GetDuration("duration")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := listenOptions{
			session:    sess,
			rx:         rx,
			hex:        hex,
			timestamps: timestamps,
			duration:   duration,
		}
		if err := runListen(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("rx", true, "Deliver received data; --rx=false keeps reading but discards it")
	listenCmd.Flags().Bool("hex", false, "Print received chunks as hex bytes")
	listenCmd.Flags().Bool("timestamps", false, "Prefix every received chunk with its arrival time")
	listenCmd.Flags().Duration("duration", 0, "Stop after this long (default: until interrupted)")
}

type listenOptions struct {
	session
	rx         bool
	hex        bool
	timestamps bool
	duration   time.Duration
}

// runListen streams one session to out until ctx ends or the port faults.
// Callbacks run on a Loop owned by the calling goroutine.
func runListen(ctx context.Context, out, errOut io.Writer, opts listenOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, opts.duration)
		defer cancelTimeout()
	}

	var failure error
	loop := comport.NewLoop()
	handler := comport.HandlerFuncs{
		Data: func(_ context.Context, ev comport.DataEvent) {
			writeChunk(out, ev, opts)
		},
		Fault: func(_ context.Context, ev comport.FaultEvent) {
			fmt.Fprintf(errOut, "Error: %s\n", ev.Message())
			if ev.Kind != comport.WriteFailure {
				failure = ev
				cancel()
			}
		},
	}

	d := comport.NewDispatcher(loop, handler, comport.WithDispatcherLogger(logger))
	defer d.Close()
	d.SetDeliveryEnabled(opts.rx)

	m := comport.NewManager(d, opts.managerOptions()...)
	defer m.Teardown()

	if !m.Start(d.Bind(ctx), opts.settings) {
		if failure == nil {
			failure = fmt.Errorf("could not open %s", opts.settings.Port)
		}
		return failure
	}
	logger.Info().Str("port", opts.settings.Port).Str("settings", opts.settings.String()).Msg("listening")

	_ = loop.Run(ctx)
	m.Stop()
	d.Flush()
	loop.RunPending()

	stats := m.Stats()
	logger.Info().
		Uint64("received", stats.BytesReceived).
		Uint64("dropped", d.Dropped()).
		Msg("stopped")
	return failure
}

func writeChunk(w io.Writer, ev comport.DataEvent, opts listenOptions) {
	if opts.timestamps {
		fmt.Fprintf(w, "[%s] ", ev.Time.Format("15:04:05.000"))
	}
	if opts.hex {
		fmt.Fprintf(w, "% X\n", ev.Bytes())
		return
	}
	io.WriteString(w, comport.DecodeText(opts.enc, ev.Bytes()))
	if opts.timestamps {
		io.WriteString(w, "\n")
	}
}
