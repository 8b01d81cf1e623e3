package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when the registry allocates a new room.
type RoomCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberAdmittedEvent is emitted when an identity is bound to a room.
type MemberAdmittedEvent struct {
	RoomID      string    `json:"room_id"`
	Identity    string    `json:"identity"`
	CreatedRoom bool      `json:"created_room"`
	Timestamp   time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted when a message is accepted into a room's log.
type MessageSentEvent struct {
	MessageID uint64    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	Seq       int64     `json:"seq"`
	Identity  string    `json:"identity"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserJoinedEvent is emitted when a live connection enters a room.
type UserJoinedEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	Identity     string    `json:"identity"`
	Username     string    `json:"username"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a live connection leaves a room,
// either explicitly or by disconnecting.
type UserLeftEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	Identity     string    `json:"identity"`
	Username     string    `json:"username"`
	Abrupt       bool      `json:"abrupt"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)

	MemberAdmittedV1 = helper.EventDefinition[MemberAdmittedEvent](
		"chat",
		"MemberAdmitted",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)
)

// Event definitions for live sessions.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"session",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"session",
		"UserLeft",
		"v1",
	)
)
