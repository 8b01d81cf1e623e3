package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// containerCapture is a dependent module that keeps the chat service
// container so tests can call through ChatAdapter.
type containerCapture struct {
	container mono.ServiceContainer
}

var _ mono.DependentModule = (*containerCapture)(nil)

func (c *containerCapture) Name() string                  { return "capture" }
func (c *containerCapture) Dependencies() []string        { return []string{"chat"} }
func (c *containerCapture) Start(_ context.Context) error { return nil }
func (c *containerCapture) Stop(_ context.Context) error  { return nil }

func (c *containerCapture) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "chat" {
		c.container = container
	}
}

// createTestAdapter starts a mono application with the chat module on an
// in-memory database and returns an adapter bound to its services.
func createTestAdapter(t *testing.T) ChatPort {
	t.Helper()

	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError), // Suppress logs in tests
	)
	require.NoError(t, err)

	capture := &containerCapture{}
	require.NoError(t, app.Register(NewModule(Config{Driver: "sqlite", DSN: ":memory:"}, &mockLogger{})))
	require.NoError(t, app.Register(capture))

	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	require.NotNil(t, capture.container)
	return NewChatAdapter(capture.container)
}

func TestChatAdapter_Admission(t *testing.T) {
	adapter := createTestAdapter(t)
	ctx := context.Background()

	admission, err := adapter.Admit(ctx, "203.0.113.7", "")
	require.NoError(t, err)
	assert.True(t, admission.CreatedRoom)
	assert.Len(t, admission.RoomID, DefaultRoomIDLength)

	// A second admission is refused, even into the identity's own room.
	_, err = adapter.Admit(ctx, "203.0.113.7", admission.RoomID)
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = adapter.Admit(ctx, "203.0.113.8", "zzzz")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = adapter.Admit(ctx, "", admission.RoomID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	joined, err := adapter.Admit(ctx, "203.0.113.9", admission.RoomID)
	require.NoError(t, err)
	assert.False(t, joined.CreatedRoom)
	assert.Equal(t, admission.RoomID, joined.RoomID)

	roomID, err := adapter.RoomOf(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, admission.RoomID, roomID)

	_, err = adapter.RoomOf(ctx, "203.0.113.8")
	assert.ErrorIs(t, err, domain.ErrNotMember)

	exists, err := adapter.RoomExists(ctx, admission.RoomID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = adapter.RoomExists(ctx, "zzzz")
	require.NoError(t, err)
	assert.False(t, exists)

	room, members, err := adapter.GetRoom(ctx, admission.RoomID)
	require.NoError(t, err)
	assert.Equal(t, admission.RoomID, room.ID)
	assert.Equal(t, int64(2), members)

	_, _, err = adapter.GetRoom(ctx, "zzzz")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestChatAdapter_ConcurrentAdmitsFromOneIdentity(t *testing.T) {
	adapter := createTestAdapter(t)
	ctx := context.Background()

	owner, err := adapter.Admit(ctx, "203.0.113.7", "")
	require.NoError(t, err)

	const attempts = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
		other   []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adapter.Admit(ctx, "198.51.100.1", owner.RoomID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrAlreadyMember):
				refused++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, refused)

	_, members, err := adapter.GetRoom(ctx, owner.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), members)
}

func TestChatAdapter_MessagesRoundTrip(t *testing.T) {
	adapter := createTestAdapter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	admission, err := adapter.Admit(ctx, "203.0.113.7", "")
	require.NoError(t, err)

	first, err := adapter.AppendMessage(ctx, admission.RoomID, "203.0.113.7", "alice", "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)

	blank := strings.Repeat(" ", 3)
	second, err := adapter.AppendMessage(ctx, admission.RoomID, "203.0.113.7", "alice", blank)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, blank, second.Content)

	_, err = adapter.AppendMessage(ctx, "zzzz", "203.0.113.7", "alice", "lost")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	messages, err := adapter.History(ctx, admission.RoomID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, blank, messages[1].Content)
	assert.Equal(t, "alice", messages[1].Username)

	after, err := adapter.History(ctx, admission.RoomID, 1, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(2), after[0].Seq)
}
