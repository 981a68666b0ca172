package comport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the connection state of a Manager
type State int

const (
	StateClosed State = iota
	StateListening
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateListening:
		return "Listening"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FaultKind classifies a fault by the operation that raised it
type FaultKind int

const (
	OpenFailure FaultKind = iota
	ReadFailure
	WriteFailure
)

func (k FaultKind) String() string {
	switch k {
	case OpenFailure:
		return "OpenFailure"
	case ReadFailure:
		return "ReadFailure"
	case WriteFailure:
		return "WriteFailure"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Notification is either a DataEvent or a FaultEvent.
type Notification interface {
	Session() uuid.UUID
	notification()
}

// DataEvent carries the bytes returned by one read.
type DataEvent struct {
	SessionID uuid.UUID
	Time      time.Time
	data      []byte
}

func newDataEvent(session uuid.UUID, at time.Time, b []byte) DataEvent {
	data := make([]byte, len(b))
	copy(data, b)
	return DataEvent{SessionID: session, Time: at, data: data}
}

// Bytes returns a copy of the received bytes.
func (e DataEvent) Bytes() []byte {
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out
}

// Len returns the number of received bytes.
func (e DataEvent) Len() int { return len(e.data) }

func (e DataEvent) Session() uuid.UUID { return e.SessionID }
func (DataEvent) notification()        {}

// FaultEvent reports a failed open, read or write.
type FaultEvent struct {
	SessionID uuid.UUID
	Port      string
	Kind      FaultKind
	Err       error
	Time      time.Time
}

// Message is the human-readable description shown to operators.
func (e FaultEvent) Message() string {
	var what string
	switch e.Kind {
	case OpenFailure:
		what = "could not open"
	case ReadFailure:
		what = "read failed on"
	case WriteFailure:
		what = "write failed on"
	default:
		what = "fault on"
	}
	port := e.Port
	if port == "" {
		port = "port"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s", what, port)
	}
	return fmt.Sprintf("%s %s: %v", what, port, e.Err)
}

func (e FaultEvent) Error() string { return e.Kind.String() + ": " + e.Message() }
func (e FaultEvent) Unwrap() error { return e.Err }

func (e FaultEvent) Session() uuid.UUID { return e.SessionID }
func (FaultEvent) notification()        {}
