package chat

import (
	"time"

	domain "github.com/example/roomchat/domain/chat"
)

// Service names registered in the chat module's service container.
const (
	ServiceAdmit         = "admit"
	ServiceRoomOf        = "room-of"
	ServiceRoomExists    = "room-exists"
	ServiceGetRoom       = "get-room"
	ServiceAppendMessage = "append-message"
	ServiceHistory       = "history"
)

// AdmitRequest asks the ledger to bind an identity to a room.
// An empty RoomID requests a new room. A non-zero Deadline is the
// caller's; past it the admission is rolled back rather than committed.
type AdmitRequest struct {
	Identity string    `json:"identity"`
	RoomID   string    `json:"room_id,omitempty"`
	Deadline time.Time `json:"deadline,omitempty"`
}

// AdmitResponse carries the bound room or an error code.
type AdmitResponse struct {
	RoomID      string    `json:"room_id,omitempty"`
	CreatedRoom bool      `json:"created_room,omitempty"`
	JoinedAt    time.Time `json:"joined_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// RoomOfRequest asks which room an identity is bound to.
type RoomOfRequest struct {
	Identity string `json:"identity"`
}

// RoomOfResponse carries the bound room or an error code.
type RoomOfResponse struct {
	RoomID string `json:"room_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RoomExistsRequest asks whether a room exists.
type RoomExistsRequest struct {
	RoomID string `json:"room_id"`
}

// RoomExistsResponse answers a RoomExistsRequest.
type RoomExistsResponse struct {
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

// GetRoomRequest asks for a room's details.
type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

// GetRoomResponse carries a room's details or an error code.
type GetRoomResponse struct {
	Room    *domain.Room `json:"room,omitempty"`
	Members int64        `json:"members"`
	Error   string       `json:"error,omitempty"`
}

// AppendMessageRequest asks the log to store a message.
type AppendMessageRequest struct {
	RoomID   string    `json:"room_id"`
	Identity string    `json:"identity"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Deadline time.Time `json:"deadline,omitempty"`
}

// AppendMessageResponse carries the stored message or an error code.
type AppendMessageResponse struct {
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HistoryRequest asks for a room's messages after a sequence number.
type HistoryRequest struct {
	RoomID   string `json:"room_id"`
	AfterSeq int64  `json:"after_seq,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// HistoryResponse carries messages in ascending sequence order.
type HistoryResponse struct {
	Messages []domain.Message `json:"messages"`
	Error    string           `json:"error,omitempty"`
}
