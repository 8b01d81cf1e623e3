package session

import (
	"errors"

	domain "github.com/example/roomchat/domain/chat"
)

// ErrInvalidState is returned when an event arrives in a state that does
// not accept it, such as text before join or anything after leave.
var ErrInvalidState = errors.New("invalid_state")

// ErrUnknownCommand is returned for frames with an unrecognised type.
var ErrUnknownCommand = errors.New("unknown_command")

// ErrInvalidFrame is reported for frames that cannot be decoded.
var ErrInvalidFrame = errors.New("invalid_frame")

// Client-to-server command types.
const (
	CommandJoin  = "join"
	CommandText  = "text"
	CommandLeave = "leave"
)

// Server-to-client event types.
const (
	EventStatus  = "status"
	EventMessage = "message"
	EventError   = "error"
)

// Command is a frame received from a client.
type Command struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	User string `json:"user,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// Event is a frame sent to a client.
type Event struct {
	Type  string `json:"type"`
	User  string `json:"user,omitempty"`
	Msg   string `json:"msg"`
	Seq   int64  `json:"seq,omitempty"`
	Error string `json:"error,omitempty"`
}

// StatusEvent builds a room notice.
func StatusEvent(msg string) Event {
	return Event{Type: EventStatus, Msg: msg}
}

// MessageEvent builds a chat message frame.
func MessageEvent(user, msg string, seq int64) Event {
	return Event{Type: EventMessage, User: user, Msg: msg, Seq: seq}
}

// ErrorEvent builds a rejection frame for err.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Error: ErrorCode(err)}
}

// ErrorCode returns the wire code for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidState):
		return ErrInvalidState.Error()
	case errors.Is(err, ErrUnknownCommand):
		return ErrUnknownCommand.Error()
	case errors.Is(err, ErrInvalidFrame):
		return ErrInvalidFrame.Error()
	default:
		return domain.Code(err)
	}
}

// Peer is the outbound side of one live connection.
type Peer interface {
	// ID uniquely identifies the connection.
	ID() string
	// Send queues evt without blocking. It reports false when the peer
	// is closed or cannot keep up.
	Send(evt Event) bool
	// Close shuts the connection down. It must be safe to call more
	// than once and from any goroutine.
	Close()
}

// State is the lifecycle state of a session.
type State int

// Session states.
const (
	StateConnected State = iota
	StateInRoom
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
