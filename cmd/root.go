/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allbin/comport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding"
)

var (
	cfgFile string
	logger  = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "comport",
	Short: "Open a serial port, watch what it receives and send text back",
	Long: `comport opens a serial (COM) device, streams what it receives to your
terminal and lets you transmit text or hex back to it.

Port settings come from flags, from COMPORT_* environment variables
(COMPORT_BAUD=115200) or from a comport.yaml config file, in that order.

Example usage:
  comport list
  comport connect /dev/ttyUSB0 --baud 115200
  comport listen /dev/ttyACM0 --hex
  comport send "AT" /dev/ttyUSB0`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log-level"), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := comport.DefaultSettings()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/comport/comport.yaml)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("port", "", "Serial port, used when none is given as an argument")
	pf.IntP("baud", "b", defaults.BaudRate, "Baud rate")
	pf.Int("data-bits", defaults.DataBits, "Data bits: 5, 6, 7 or 8")
	pf.String("parity", defaults.Parity.String(), "Parity: none, odd, even, mark, space")
	pf.String("stop-bits", defaults.StopBits.String(), "Stop bits: 1, 1.5 or 2")
	pf.Duration("read-timeout", defaults.ReadTimeout, "Read timeout, bounds how long a disconnect takes")
	pf.String("driver", comport.DriverBugst, "Port driver: "+strings.Join(comport.Drivers(), ", "))
	pf.String("encoding", "utf-8", "Character set for sent and displayed text: "+strings.Join(comport.Encodings(), ", "))
	pf.String("newline", "lf", "Line ending appended to sent text: none, lf, cr, crlf")

	for _, name := range []string{
		"log-level", "port", "baud", "data-bits", "parity", "stop-bits",
		"read-timeout", "driver", "encoding", "newline",
	} {
		if err := viper.BindPFlag(name, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configure(viper.GetViper(), cfgFile)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// configure sets up config file lookup and the COMPORT_ environment prefix
func configure(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "comport"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("comport")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("COMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// newLogger builds the CLI logger. Output is human readable on w.
func newLogger(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

// portArg picks the port from args[i], falling back to the port config key
func portArg(v *viper.Viper, args []string, i int) (string, error) {
	if i < len(args) && args[i] != "" {
		return args[i], nil
	}
	if p := v.GetString("port"); p != "" {
		return p, nil
	}
	return "", errors.New("no port given; pass one as an argument or set port in the config")
}

// settingsFrom builds port settings for port from the config keys
func settingsFrom(v *viper.Viper, port string) (comport.Settings, error) {
	parity, err := comport.ParseParity(v.GetString("parity"))
	if err != nil {
		return comport.Settings{}, err
	}
	stopBits, err := comport.ParseStopBits(v.GetString("stop-bits"))
	if err != nil {
		return comport.Settings{}, err
	}

	return comport.NewSettings(port,
		comport.WithBaudRate(v.GetInt("baud")),
		comport.WithDataBits(v.GetInt("data-bits")),
		comport.WithParity(parity),
		comport.WithStopBits(stopBits),
		comport.WithReadTimeout(v.GetDuration("read-timeout")),
	)
}

func openerFrom(v *viper.Viper) (comport.Opener, error) {
	return comport.OpenerFor(v.GetString("driver"))
}

func encodingFrom(v *viper.Viper) (encoding.Encoding, error) {
	return comport.LookupEncoding(v.GetString("encoding"))
}

// lineEnding resolves the newline key
func lineEnding(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return "", nil
	case "lf", `\n`:
		return "\n", nil
	case "cr", `\r`:
		return "\r", nil
	case "crlf", `\r\n`:
		return "\r\n", nil
	default:
		return "", fmt.Errorf("unknown newline %q (want none, lf, cr or crlf)", name)
	}
}

// session bundles what every port command needs from the config
type session struct {
	settings comport.Settings
	opener   comport.Opener
	enc      encoding.Encoding
	newline  string
}

func sessionFrom(v *viper.Viper, args []string, portIndex int) (session, error) {
	port, err := portArg(v, args, portIndex)
	if err != nil {
		return session{}, err
	}
	s, err := settingsFrom(v, port)
	if err != nil {
		return session{}, err
	}
	opener, err := openerFrom(v)
	if err != nil {
		return session{}, err
	}
	enc, err := encodingFrom(v)
	if err != nil {
		return session{}, err
	}
	nl, err := lineEnding(v.GetString("newline"))
	if err != nil {
		return session{}, err
	}
	return session{settings: s, opener: opener, enc: enc, newline: nl}, nil
}

// managerOptions returns the options shared by every command that opens a port
func (s session) managerOptions() []comport.ManagerOption {
	return []comport.ManagerOption{
		comport.WithOpener(s.opener),
		comport.WithEncoding(s.enc),
		comport.WithLogger(logger),
	}
}
