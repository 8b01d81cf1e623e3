package session

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/events"
)

// Session is the server-side state of one live connection:
// Connected, then InRoom after a successful join, then Closed.
// Closed is terminal.
type Session struct {
	id       string
	identity domain.Identity
	peer     Peer
	manager  *Manager

	mu       sync.Mutex
	state    State
	roomID   string
	username string
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Identity returns the identity the connection was opened with.
func (s *Session) Identity() domain.Identity {
	return s.identity
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the room the session is in, or the room it last left.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Username returns the display name given at join.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Handle dispatches a client command to the matching transition.
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandJoin:
		return s.Join(ctx, cmd.Room, cmd.User)
	case CommandText:
		return s.Text(ctx, cmd.Msg)
	case CommandLeave:
		return s.Leave(ctx)
	default:
		return ErrUnknownCommand
	}
}

// Join admits the connection to roomID under the given display name and
// announces it to the room, the joiner included. The identity must be
// bound to roomID.
func (s *Session) Join(ctx context.Context, roomID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return ErrInvalidState
	}

	name := domain.NormalizeName(username)
	if name == "" {
		return domain.ErrMissingName
	}

	bound, err := s.manager.store.RoomOf(ctx, s.identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotMember) {
			return domain.ErrForbidden
		}
		return err
	}
	if roomID == "" || bound != roomID {
		return domain.ErrForbidden
	}

	hub := s.manager.hub
	r := hub.roster(roomID)
	r.mu.Lock()
	r.peers[s.peer.ID()] = s.peer
	s.state = StateInRoom
	s.roomID = roomID
	s.username = name
	hub.broadcastLocked(roomID, r, StatusEvent(name+" joined"))
	r.mu.Unlock()

	s.manager.logger.Info("User joined room", "roomID", roomID, "username", name, "connectionID", s.peer.ID())

	if bus := s.manager.eventBus; bus != nil {
		event := events.UserJoinedEvent{
			RoomID:       roomID,
			ConnectionID: s.peer.ID(),
			Identity:     string(s.identity),
			Username:     name,
			Timestamp:    time.Now(),
		}
		if err := events.UserJoinedV1.Publish(bus, event, nil); err != nil {
			s.manager.logger.Warn("Failed to publish UserJoined event", "error", err)
		}
	}
	return nil
}

// Text appends content to the room's log and delivers it to every live
// connection in the room, the sender included. Nothing is delivered if
// the append fails.
func (s *Session) Text(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInRoom {
		return ErrInvalidState
	}

	hub := s.manager.hub
	r := hub.roster(s.roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, err := s.manager.store.AppendMessage(ctx, s.roomID, s.identity, s.username, content)
	if err != nil {
		s.manager.logger.Warn("Failed to append message", "roomID", s.roomID, "error", err)
		return err
	}

	hub.broadcastLocked(s.roomID, r, MessageEvent(s.username, msg.Content, msg.Seq))
	return nil
}

// Leave removes the connection from its room and tells the remaining
// members. The session is closed afterwards; the membership stays.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInRoom {
		return ErrInvalidState
	}
	s.leaveLocked(false)
	return nil
}

// Disconnect handles the connection going away, whether by the client
// hanging up or by being reaped. A session still in a room leaves it as
// if the client had asked to. Calling Disconnect again is a no-op.
func (s *Session) Disconnect(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateInRoom:
		s.leaveLocked(true)
	case StateConnected:
		s.state = StateClosed
	case StateClosed:
	}
	s.manager.forget(s)
}

// leaveLocked performs the InRoom to Closed transition. The caller must
// hold s.mu.
func (s *Session) leaveLocked(abrupt bool) {
	hub := s.manager.hub
	r := hub.roster(s.roomID)
	r.mu.Lock()
	delete(r.peers, s.peer.ID())
	hub.broadcastLocked(s.roomID, r, StatusEvent(s.username+" left"))
	r.mu.Unlock()

	s.state = StateClosed
	s.manager.logger.Info("User left room",
		"roomID", s.roomID,
		"username", s.username,
		"connectionID", s.peer.ID(),
		"abrupt", abrupt)

	if bus := s.manager.eventBus; bus != nil {
		event := events.UserLeftEvent{
			RoomID:       s.roomID,
			ConnectionID: s.peer.ID(),
			Identity:     string(s.identity),
			Username:     s.username,
			Abrupt:       abrupt,
			Timestamp:    time.Now(),
		}
		if err := events.UserLeftV1.Publish(bus, event, nil); err != nil {
			s.manager.logger.Warn("Failed to publish UserLeft event", "error", err)
		}
	}
}
