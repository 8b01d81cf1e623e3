package chat

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort defines the chat operations other modules depend on.
type ChatPort interface {
	Admit(ctx context.Context, identity domain.Identity, roomID string) (*Admission, error)
	RoomOf(ctx context.Context, identity domain.Identity) (string, error)
	RoomExists(ctx context.Context, roomID string) (bool, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, int64, error)
	AppendMessage(ctx context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error)
	History(ctx context.Context, roomID string, afterSeq int64, limit int) ([]domain.Message, error)
}

// Compile-time interface checks
var (
	_ ChatPort = (*ChatAdapter)(nil)
	_ ChatPort = (*Service)(nil)
)

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

// Admit binds identity to roomID, or to a new room when roomID is empty.
func (a *ChatAdapter) Admit(ctx context.Context, identity domain.Identity, roomID string) (*Admission, error) {
	req := AdmitRequest{Identity: string(identity), RoomID: roomID}
	if deadline, ok := ctx.Deadline(); ok {
		req.Deadline = deadline
	}
	var resp AdmitResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceAdmit,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, transportError(ServiceAdmit, err)
	}
	if err := domain.FromCode(resp.Error); err != nil {
		return nil, err
	}
	return &Admission{RoomID: resp.RoomID, CreatedRoom: resp.CreatedRoom, JoinedAt: resp.JoinedAt}, nil
}

// RoomOf returns the room identity is bound to.
func (a *ChatAdapter) RoomOf(ctx context.Context, identity domain.Identity) (string, error) {
	req := RoomOfRequest{Identity: string(identity)}
	var resp RoomOfResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomOf,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return "", transportError(ServiceRoomOf, err)
	}
	if err := domain.FromCode(resp.Error); err != nil {
		return "", err
	}
	return resp.RoomID, nil
}

// RoomExists reports whether roomID names a created room.
func (a *ChatAdapter) RoomExists(ctx context.Context, roomID string) (bool, error) {
	req := RoomExistsRequest{RoomID: roomID}
	var resp RoomExistsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomExists,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, transportError(ServiceRoomExists, err)
	}
	if err := domain.FromCode(resp.Error); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// GetRoom returns a room and the number of identities bound to it.
func (a *ChatAdapter) GetRoom(ctx context.Context, roomID string) (*domain.Room, int64, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp GetRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetRoom,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, 0, transportError(ServiceGetRoom, err)
	}
	if err := domain.FromCode(resp.Error); err != nil {
		return nil, 0, err
	}
	return resp.Room, resp.Members, nil
}

// AppendMessage stores a message in roomID's log.
func (a *ChatAdapter) AppendMessage(ctx context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error) {
	req := AppendMessageRequest{
		RoomID:   roomID,
		Identity: string(identity),
		Username: username,
		Content:  content,
	}
	if deadline, ok := ctx.Deadline(); ok {
		req.Deadline = deadline
	}
	var resp AppendMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceAppendMessage,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, transportError(ServiceAppendMessage, err)
	}
	if err := domain.FromCode(resp.Error); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// History returns messages of roomID after afterSeq.
func (a *ChatAdapter) History(ctx context.Context, roomID string, afterSeq int64, limit int) ([]domain.Message, error) {
	req := HistoryRequest{RoomID: roomID, AfterSeq: afterSeq, Limit: limit}
	var resp HistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, transportError(ServiceHistory, err)
	}
	if err := domain.FromCode(resp.Error); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// transportError reports a failed round trip as a store failure. A call
// that times out may still have committed if the handler finished just
// before the caller's deadline.
func transportError(service string, err error) error {
	return fmt.Errorf("%w: %s call failed: %v", domain.ErrStoreFailure, service, err)
}
