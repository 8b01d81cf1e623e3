package session

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any) {}
func (m *mockLogger) Warn(_ string, _ ...any) {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger { return m }

// fakePeer records events in a bounded queue.
type fakePeer struct {
	id     string
	events chan Event

	mu     sync.Mutex
	closed bool
}

func newFakePeer(id string, size int) *fakePeer {
	return &fakePeer{id: id, events: make(chan Event, size)}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(evt Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- evt:
		return true
	default:
		return false
	}
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// drain returns every event queued so far.
func (p *fakePeer) drain() []Event {
	var out []Event
	for {
		select {
		case evt := <-p.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

// fakeStore is an in-memory Store with per-room sequences.
type fakeStore struct {
	mu          sync.Mutex
	memberships map[domain.Identity]string
	seqs        map[string]int64
	messages    []domain.Message
	appendErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memberships: make(map[domain.Identity]string),
		seqs:        make(map[string]int64),
	}
}

func (s *fakeStore) bind(identity domain.Identity, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[identity] = roomID
}

func (s *fakeStore) RoomOf(_ context.Context, identity domain.Identity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.memberships[identity]
	if !ok {
		return "", domain.ErrNotMember
	}
	return roomID, nil
}

func (s *fakeStore) AppendMessage(_ context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.seqs[roomID]++
	msg := domain.Message{
		ID:       uint64(len(s.messages) + 1),
		RoomID:   roomID,
		Seq:      s.seqs[roomID],
		Identity: identity,
		Username: username,
		Content:  content,
		SentAt:   time.Now(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func newTestManager(t *testing.T) (*Manager, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	logger := &mockLogger{}
	return NewManager(NewHub(logger), store, logger), store
}

// joinedSession opens a session for identity on a fresh peer and joins it
// to roomID, discarding the events the join produced on that peer.
func joinedSession(t *testing.T, m *Manager, identity domain.Identity, roomID, name string) (*Session, *fakePeer) {
	t.Helper()
	peer := newFakePeer(string(identity)+"-conn", 64)
	s := m.Open(identity, peer)
	if err := s.Join(context.Background(), roomID, name); err != nil {
		t.Fatalf("Join(%s) error = %v", name, err)
	}
	peer.drain()
	return s, peer
}
