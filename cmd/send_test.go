package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/simport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestSendText(t *testing.T) {
	reg := simport.NewRegistry()
	var out bytes.Buffer

	err := sendData(context.Background(), &out, sendRequest{session: simSession(t, reg, "SIM10"), text: "AT"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Connected successfully")
	assert.Contains(t, out.String(), "Successfully sent 3 bytes")
	assert.Contains(t, out.String(), "Data: AT·")
	assert.NotContains(t, out.String(), "Reply")
	assert.False(t, reg.IsOpen("SIM10"), "port is released after sending")
}

func TestSendHexWaitsForEcho(t *testing.T) {
	reg := simport.NewRegistry(simport.WithEcho())
	var out bytes.Buffer

	err := sendData(context.Background(), &out, sendRequest{
		session: simSession(t, reg, "SIM11"),
		raw:     []byte("OK"),
		wait:    100 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Successfully sent 2 bytes")
	assert.Contains(t, out.String(), "Reply: OK")
}

func TestSendLoopbackDriver(t *testing.T) {
	opener, err := comport.OpenerFor(comport.DriverLoopback)
	require.NoError(t, err)
	s, err := comport.NewSettings("LOOP_SEND_TEST", comport.WithReadTimeout(20*time.Millisecond))
	require.NoError(t, err)

	var out bytes.Buffer
	err = sendData(context.Background(), &out, sendRequest{
		session: session{settings: s, opener: opener, newline: "\r\n"},
		text:    "ping",
		wait:    100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Reply: ping··")
}

func TestSendNoReply(t *testing.T) {
	reg := simport.NewRegistry()
	var out bytes.Buffer

	err := sendData(context.Background(), &out, sendRequest{
		session: simSession(t, reg, "SIM12"),
		text:    "hello",
		wait:    50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No reply within 50ms")
}

func TestSendOpenFailure(t *testing.T) {
	reg := simport.NewRegistry()
	reg.FailOpen("SIM13", errors.New("permission denied"))
	var out bytes.Buffer

	err := sendData(context.Background(), &out, sendRequest{session: simSession(t, reg, "SIM13"), text: "x"})
	require.Error(t, err)

	var fault comport.FaultEvent
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, comport.OpenFailure, fault.Kind)
	assert.NotContains(t, out.String(), "Connected")
}

func TestSendUnencodableText(t *testing.T) {
	reg := simport.NewRegistry()
	sess := simSession(t, reg, "SIM14")
	sess.enc = charmap.ISO8859_1
	var out bytes.Buffer

	err := sendData(context.Background(), &out, sendRequest{session: sess, text: "snow ☃"})
	require.Error(t, err)

	var fault comport.FaultEvent
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, comport.WriteFailure, fault.Kind)
	assert.NotContains(t, out.String(), "Successfully sent")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "AT·", preview([]byte("AT\n")))
	assert.Equal(t, "·A", preview([]byte{0x00, 'A'}))

	long := bytes.Repeat([]byte("x"), 60)
	got := preview(long)
	assert.Equal(t, string(bytes.Repeat([]byte("x"), 50))+"...", got)
}
