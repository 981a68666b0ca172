package comport

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDataEventIsImmutable(t *testing.T) {
	src := []byte("abc")
	ev := newDataEvent(uuid.New(), time.Now(), src)

	src[0] = 'X'
	if string(ev.Bytes()) != "abc" {
		t.Errorf("event changed with its source buffer: %q", ev.Bytes())
	}

	out := ev.Bytes()
	out[1] = 'Y'
	if string(ev.Bytes()) != "abc" {
		t.Errorf("event changed through Bytes(): %q", ev.Bytes())
	}
	if ev.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ev.Len())
	}
}

func TestFaultEventMessage(t *testing.T) {
	tests := []struct {
		ev       FaultEvent
		contains []string
	}{
		{FaultEvent{Port: "COM1", Kind: OpenFailure, Err: ErrDeviceInUse}, []string{"could not open COM1", "already in use"}},
		{FaultEvent{Port: "/dev/ttyUSB0", Kind: ReadFailure, Err: ErrDisconnected}, []string{"read failed on /dev/ttyUSB0", "disconnected"}},
		{FaultEvent{Kind: WriteFailure, Err: ErrPortClosed}, []string{"write failed on port", "closed"}},
		{FaultEvent{Port: "COM2", Kind: WriteFailure}, []string{"write failed on COM2"}},
	}

	for _, test := range tests {
		msg := test.ev.Message()
		for _, want := range test.contains {
			if !strings.Contains(msg, want) {
				t.Errorf("Message() = %q, missing %q", msg, want)
			}
		}
	}
}

func TestFaultEventUnwrap(t *testing.T) {
	ev := FaultEvent{Kind: ReadFailure, Err: ErrDisconnected}
	if !errors.Is(ev, ErrDisconnected) {
		t.Error("FaultEvent should unwrap to its cause")
	}
	if !strings.HasPrefix(ev.Error(), "ReadFailure") {
		t.Errorf("Error() = %q", ev.Error())
	}
}

func TestStateAndKindStrings(t *testing.T) {
	if StateClosed.String() != "Closed" || StateListening.String() != "Listening" {
		t.Error("unexpected State strings")
	}
	for _, k := range []FaultKind{OpenFailure, ReadFailure, WriteFailure} {
		if strings.HasPrefix(k.String(), "FaultKind(") {
			t.Errorf("missing name for kind %d", int(k))
		}
	}
}
