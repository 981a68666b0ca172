package comport

import (
	"errors"
	"io/fs"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

func TestOpenerFor(t *testing.T) {
	for _, name := range append(Drivers(), "") {
		o, err := OpenerFor(name)
		require.NoError(t, err, name)
		assert.NotNil(t, o)
	}

	o, _ := OpenerFor("")
	assert.IsType(t, BugstOpener{}, o)

	_, err := OpenerFor("winusb")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestBugstMode(t *testing.T) {
	s, err := NewSettings("COM1", WithBaudRate(19200), WithDataBits(7), WithParity(ParityMark), WithStopBits(StopBitsOnePointFive))
	require.NoError(t, err)

	mode, err := bugstMode(s)
	require.NoError(t, err)
	assert.Equal(t, 19200, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.MarkParity, mode.Parity)
	assert.Equal(t, serial.OnePointFiveStopBits, mode.StopBits)

	s.Parity = Parity(42)
	_, err = bugstMode(s)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClassifyBugstError(t *testing.T) {
	assert.Nil(t, classifyBugstError(errors.New("plain")))
	assert.Nil(t, classifyBugstError(nil))
}

func TestBugstOpenMissingDevice(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("device paths are linux specific")
	}
	s, err := NewSettings("/dev/ttyDOESNOTEXIST0")
	require.NoError(t, err)

	_, err = BugstOpener{}.Open(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Contains(t, err.Error(), "/dev/ttyDOESNOTEXIST0")
}

func TestTarmConfig(t *testing.T) {
	s, err := NewSettings("/dev/ttyUSB0", WithBaudRate(57600), WithParity(ParityEven), WithStopBits(StopBitsTwo), WithReadTimeout(300*time.Millisecond))
	require.NoError(t, err)

	cfg, err := tarmConfig(s)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Name)
	assert.Equal(t, 57600, cfg.Baud)
	assert.Equal(t, byte(8), cfg.Size)
	assert.Equal(t, tarm.ParityEven, cfg.Parity)
	assert.Equal(t, tarm.Stop2, cfg.StopBits)
	assert.Equal(t, 300*time.Millisecond, cfg.ReadTimeout)
}

func TestWrapOpenError(t *testing.T) {
	err := wrapOpenError("COM1", nil, fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	err = wrapOpenError("COM1", nil, fs.ErrPermission)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	cause := errors.New("bus fault")
	err = wrapOpenError("COM1", ErrDeviceInUse, cause)
	assert.ErrorIs(t, err, ErrDeviceInUse)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "COM1")

	err = wrapOpenError("COM1", nil, cause)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDeviceNotFound)
}

func TestLoopbackOpener(t *testing.T) {
	o, err := OpenerFor(DriverLoopback)
	require.NoError(t, err)

	s, err := NewSettings("LOOP_TEST", WithReadTimeout(50*time.Millisecond))
	require.NoError(t, err)

	p, err := o.Open(s)
	require.NoError(t, err)
	defer p.Close()

	// One loopback device per name, process-wide
	_, err = o.Open(s)
	assert.ErrorIs(t, err, ErrDeviceInUse)

	_, err = p.Write([]byte("echo"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "echo", string(buf[:n]))
}
