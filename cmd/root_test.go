package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allbin/comport"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// testViper returns a viper carrying the same defaults as the root flags
func testViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	defaults := comport.DefaultSettings()
	v.SetDefault("baud", defaults.BaudRate)
	v.SetDefault("data-bits", defaults.DataBits)
	v.SetDefault("parity", defaults.Parity.String())
	v.SetDefault("stop-bits", defaults.StopBits.String())
	v.SetDefault("read-timeout", defaults.ReadTimeout)
	v.SetDefault("driver", comport.DriverBugst)
	v.SetDefault("encoding", "utf-8")
	v.SetDefault("newline", "lf")
	return v
}

func TestLineEnding(t *testing.T) {
	tests := map[string]string{
		"":     "",
		"none": "",
		"lf":   "\n",
		"LF":   "\n",
		`\n`:   "\n",
		"cr":   "\r",
		`\r`:   "\r",
		"crlf": "\r\n",
		`\r\n`: "\r\n",
	}
	for name, want := range tests {
		got, err := lineEnding(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := lineEnding("lfcr")
	assert.Error(t, err)
}

func TestPortArg(t *testing.T) {
	v := viper.New()

	port, err := portArg(v, []string{"/dev/ttyUSB0"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", port)

	_, err = portArg(v, []string{"data"}, 1)
	assert.Error(t, err, "no argument and no configured port")

	v.Set("port", "/dev/ttyS1")
	port, err = portArg(v, []string{"data"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", port)

	port, err = portArg(v, []string{"/dev/ttyACM0"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", port, "an argument wins over the config")
}

func TestSettingsFrom(t *testing.T) {
	v := testViper(t)
	v.Set("baud", 115200)
	v.Set("data-bits", 7)
	v.Set("parity", "even")
	v.Set("stop-bits", "2")
	v.Set("read-timeout", 250*time.Millisecond)

	s, err := settingsFrom(v, "/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, comport.Settings{
		Port:        "/dev/ttyUSB0",
		BaudRate:    115200,
		DataBits:    7,
		Parity:      comport.ParityEven,
		StopBits:    comport.StopBitsTwo,
		ReadTimeout: 250 * time.Millisecond,
	}, s)
}

func TestSettingsFromInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"baud", 12345},
		{"data-bits", 9},
		{"parity", "sometimes"},
		{"stop-bits", "3"},
		{"read-timeout", -time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := testViper(t)
			v.Set(tt.key, tt.value)
			_, err := settingsFrom(v, "/dev/ttyUSB0")
			assert.Error(t, err)
		})
	}
}

func TestSessionFrom(t *testing.T) {
	v := testViper(t)
	v.Set("driver", "loopback")
	v.Set("encoding", "latin1")
	v.Set("newline", "crlf")

	sess, err := sessionFrom(v, []string{"LOOP0"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "LOOP0", sess.settings.Port)
	assert.NotNil(t, sess.opener)
	assert.Equal(t, charmap.ISO8859_1, sess.enc)
	assert.Equal(t, "\r\n", sess.newline)
	assert.Len(t, sess.managerOptions(), 3)

	v.Set("driver", "winusb")
	_, err = sessionFrom(v, []string{"LOOP0"}, 0)
	assert.ErrorIs(t, err, comport.ErrUnknownDriver)

	v.Set("driver", "")
	v.Set("encoding", "ebcdic")
	_, err = sessionFrom(v, []string{"LOOP0"}, 0)
	assert.ErrorIs(t, err, comport.ErrUnknownEncoding)

	_, err = sessionFrom(testViper(t), nil, 0)
	assert.Error(t, err, "no port")
}

func TestConfigureFromEnvironment(t *testing.T) {
	t.Setenv("COMPORT_BAUD", "57600")
	t.Setenv("COMPORT_READ_TIMEOUT", "1s")
	t.Setenv("COMPORT_PORT", "/dev/ttyAMA0")

	v := testViper(t)
	configure(v, "")

	assert.Equal(t, 57600, v.GetInt("baud"))
	assert.Equal(t, time.Second, v.GetDuration("read-timeout"))

	sess, err := sessionFrom(v, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", sess.settings.Port)
	assert.Equal(t, 57600, sess.settings.BaudRate)
	assert.Equal(t, unicode.UTF8, sess.enc)
}

func TestConfigureFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := "port: /dev/ttyUSB3\nbaud: 19200\nparity: odd\nnewline: cr\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := testViper(t)
	configure(v, path)
	require.NoError(t, v.ReadInConfig())

	sess, err := sessionFrom(v, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", sess.settings.Port)
	assert.Equal(t, 19200, sess.settings.BaudRate)
	assert.Equal(t, comport.ParityOdd, sess.settings.Parity)
	assert.Equal(t, 8, sess.settings.DataBits, "unset keys keep their defaults")
	assert.Equal(t, "\r", sess.newline)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger("INFO", &buf)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l.Debug().Msg("hidden")
	l.Info().Str("port", "/dev/ttyUSB0").Msg("listening")
	assert.Contains(t, buf.String(), "listening")
	assert.Contains(t, buf.String(), "/dev/ttyUSB0")
	assert.NotContains(t, buf.String(), "hidden")

	_, err = newLogger("chatty", &buf)
	assert.Error(t, err)
}
