package session

import (
	"context"
	"sync"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the chat service sessions depend on.
type Store interface {
	RoomOf(ctx context.Context, identity domain.Identity) (string, error)
	AppendMessage(ctx context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error)
}

// Manager creates sessions for new connections and keeps track of the
// live ones.
type Manager struct {
	hub      *Hub
	store    Store
	eventBus mono.EventBus
	logger   types.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a new Manager. The store and event bus may be
// supplied later, but before the first connection is opened.
func NewManager(hub *Hub, store Store, logger types.Logger) *Manager {
	return &Manager{
		hub:      hub,
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// SetStore sets the chat store.
func (m *Manager) SetStore(store Store) {
	m.store = store
}

// SetEventBus sets the bus UserJoined and UserLeft are published on.
func (m *Manager) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// Hub returns the hub holding the room rosters.
func (m *Manager) Hub() *Hub {
	return m.hub
}

// Open starts a session for a freshly accepted connection.
func (m *Manager) Open(identity domain.Identity, peer Peer) *Session {
	s := &Session{
		id:       uuid.NewString(),
		identity: identity,
		peer:     peer,
		manager:  m,
		state:    StateConnected,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Debug("Session opened", "sessionID", s.id, "connectionID", peer.ID(), "identity", identity)
	return s
}

// SessionCount returns the number of sessions not yet disconnected.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll disconnects every live session and closes its connection.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		g.Go(func() error {
			s.Disconnect(gctx)
			s.peer.Close()
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
}
