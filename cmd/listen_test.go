package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/comport"
	"github.com/allbin/comport/internal/simport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"golang.org/x/text/encoding/unicode"
)

// syncBuffer is written by the listen goroutine and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func simSession(t *testing.T, reg *simport.Registry, port string) session {
	t.Helper()
	s, err := comport.NewSettings(port, comport.WithReadTimeout(20*time.Millisecond))
	require.NoError(t, err)

	opener := comport.OpenerFunc(func(s comport.Settings) (comport.Port, error) {
		p, err := reg.Open(s.Port, s.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	return session{settings: s, opener: opener, enc: unicode.UTF8, newline: "\n"}
}

type listenRun struct {
	out, errOut syncBuffer
	cancel      context.CancelFunc
	result      chan error
}

func startListen(t *testing.T, opts listenOptions) *listenRun {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &listenRun{cancel: cancel, result: make(chan error, 1)}
	go func() {
		r.result <- runListen(ctx, &r.out, &r.errOut, opts)
	}()
	t.Cleanup(cancel)
	return r
}

func (r *listenRun) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not return")
		return nil
	}
}

func waitOpen(t *testing.T, reg *simport.Registry, name string) *simport.Port {
	t.Helper()
	require.Eventually(t, func() bool { return reg.IsOpen(name) }, time.Second, 5*time.Millisecond)
	return reg.Port(name)
}

func TestListenStreamsText(t *testing.T) {
	reg := simport.NewRegistry()
	run := startListen(t, listenOptions{session: simSession(t, reg, "SIM0"), rx: true})

	port := waitOpen(t, reg, "SIM0")
	port.Inject([]byte("hello "))
	port.Inject([]byte("world"))

	assert.Eventually(t, func() bool { return run.out.String() == "hello world" }, time.Second, 5*time.Millisecond)

	run.cancel()
	assert.NoError(t, run.wait(t))
	assert.False(t, reg.IsOpen("SIM0"), "port is released on exit")
	assert.Empty(t, run.errOut.String())
}

func TestListenHexWithTimestamps(t *testing.T) {
	reg := simport.NewRegistry()
	run := startListen(t, listenOptions{session: simSession(t, reg, "SIM1"), rx: true, hex: true, timestamps: true})

	waitOpen(t, reg, "SIM1").Inject([]byte{0x01, 0xAB})

	assert.Eventually(t, func() bool {
		out := run.out.String()
		return len(out) > 0 && bytes.HasSuffix([]byte(out), []byte("] 01 AB\n"))
	}, time.Second, 5*time.Millisecond)
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\.\d{3}\] 01 AB\n$`, run.out.String())

	run.cancel()
	assert.NoError(t, run.wait(t))
}

func TestListenRxDisabled(t *testing.T) {
	reg := simport.NewRegistry()
	run := startListen(t, listenOptions{
		session:  simSession(t, reg, "SIM2"),
		rx:       false,
		duration: 150 * time.Millisecond,
	})

	port := waitOpen(t, reg, "SIM2")
	port.Inject([]byte("discarded"))
	require.Eventually(t, func() bool { return port.Reads() > 1 }, time.Second, 5*time.Millisecond)

	assert.NoError(t, run.wait(t))
	assert.Empty(t, run.out.String())
}

func TestListenEndsOnDisconnect(t *testing.T) {
	reg := simport.NewRegistry()
	run := startListen(t, listenOptions{session: simSession(t, reg, "SIM3"), rx: true})

	waitOpen(t, reg, "SIM3").Disconnect()

	err := run.wait(t)
	require.Error(t, err)
	var fault comport.FaultEvent
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, comport.ReadFailure, fault.Kind)
	assert.ErrorIs(t, err, simport.ErrDisconnected)
	assert.Contains(t, run.errOut.String(), "Error: read failed on SIM3")
}

func TestListenOpenFailure(t *testing.T) {
	reg := simport.NewRegistry()
	_, err := reg.Open("SIM4", time.Second)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	err = runListen(context.Background(), &out, &errOut, listenOptions{session: simSession(t, reg, "SIM4"), rx: true})
	require.Error(t, err)

	var fault comport.FaultEvent
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, comport.OpenFailure, fault.Kind)
	assert.ErrorIs(t, err, simport.ErrInUse)
	assert.Contains(t, errOut.String(), "Error: could not open SIM4")
	assert.Empty(t, out.String())
}

// chattyPort returns data on every read and counts what it handed out
type chattyPort struct {
	served atomic.Uint64
}

func (p *chattyPort) Read(b []byte) (int, error) {
	time.Sleep(50 * time.Microsecond)
	n := copy(b, strings.Repeat("x", 32))
	p.served.Add(uint64(n))
	return n, nil
}

func (p *chattyPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *chattyPort) Close() error                { return nil }

func TestListenPrintsEverythingReadBeforeExit(t *testing.T) {
	port := &chattyPort{}
	s, err := comport.NewSettings("CHATTY", comport.WithReadTimeout(20*time.Millisecond))
	require.NoError(t, err)
	opener := comport.OpenerFunc(func(comport.Settings) (comport.Port, error) { return port, nil })

	var out, errOut bytes.Buffer
	err = runListen(context.Background(), &out, &errOut, listenOptions{
		session:  session{settings: s, opener: opener, enc: unicode.UTF8, newline: "\n"},
		rx:       true,
		duration: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.NotZero(t, port.served.Load())
	assert.EqualValues(t, port.served.Load(), out.Len(), "queued chunks must be printed before listen returns")
}
