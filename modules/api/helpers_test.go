package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/activity"
	"github.com/example/roomchat/modules/chat"
	"github.com/example/roomchat/modules/session"
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

// mockChatPort implements chat.ChatPort for testing
type mockChatPort struct {
	admitFunc      func(ctx context.Context, identity domain.Identity, roomID string) (*chat.Admission, error)
	roomOfFunc     func(ctx context.Context, identity domain.Identity) (string, error)
	roomExistsFunc func(ctx context.Context, roomID string) (bool, error)
	getRoomFunc    func(ctx context.Context, roomID string) (*domain.Room, int64, error)
	historyFunc    func(ctx context.Context, roomID string, afterSeq int64, limit int) ([]domain.Message, error)
	appendMessages sync.Mutex
	seqs           map[string]int64
}

var _ chat.ChatPort = (*mockChatPort)(nil)

func (m *mockChatPort) Admit(ctx context.Context, identity domain.Identity, roomID string) (*chat.Admission, error) {
	if m.admitFunc != nil {
		return m.admitFunc(ctx, identity, roomID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockChatPort) RoomOf(ctx context.Context, identity domain.Identity) (string, error) {
	if m.roomOfFunc != nil {
		return m.roomOfFunc(ctx, identity)
	}
	return "", domain.ErrNotMember
}

func (m *mockChatPort) RoomExists(ctx context.Context, roomID string) (bool, error) {
	if m.roomExistsFunc != nil {
		return m.roomExistsFunc(ctx, roomID)
	}
	return true, nil
}

func (m *mockChatPort) GetRoom(ctx context.Context, roomID string) (*domain.Room, int64, error) {
	if m.getRoomFunc != nil {
		return m.getRoomFunc(ctx, roomID)
	}
	return nil, 0, domain.ErrRoomNotFound
}

func (m *mockChatPort) AppendMessage(_ context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error) {
	m.appendMessages.Lock()
	defer m.appendMessages.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[roomID]++
	return &domain.Message{
		RoomID:   roomID,
		Seq:      m.seqs[roomID],
		Identity: identity,
		Username: username,
		Content:  content,
		SentAt:   time.Now(),
	}, nil
}

func (m *mockChatPort) History(ctx context.Context, roomID string, afterSeq int64, limit int) ([]domain.Message, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, roomID, afterSeq, limit)
	}
	return nil, nil
}

// boundTo returns a RoomOf func binding every identity in members to roomID.
func boundTo(roomID string, members ...domain.Identity) func(context.Context, domain.Identity) (string, error) {
	return func(_ context.Context, identity domain.Identity) (string, error) {
		for _, member := range members {
			if member == identity {
				return roomID, nil
			}
		}
		return "", domain.ErrNotMember
	}
}

// mockActivityPort implements activity.ActivityPort for testing
type mockActivityPort struct {
	stats   activity.RoomStats
	summary activity.Summary
	err     error
}

var _ activity.ActivityPort = (*mockActivityPort)(nil)

func (m *mockActivityPort) RoomStats(_ context.Context, roomID string) (*activity.RoomStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	stats := m.stats
	stats.RoomID = roomID
	return &stats, nil
}

func (m *mockActivityPort) Summary(_ context.Context) (*activity.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	summary := m.summary
	return &summary, nil
}

// newTestModule wires an APIModule to port without going through mono.
func newTestModule(t *testing.T, port *mockChatPort, config Config) *APIModule {
	t.Helper()

	logger := &mockLogger{}
	m := NewModule(config)
	m.chatAdapter = port
	m.gateway = NewGateway(port)
	m.SetSessions(session.NewManager(session.NewHub(logger), port, logger))
	return m
}
