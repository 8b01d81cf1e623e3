package chat

import "time"

// Identity is an opaque token naming whoever is on the other end of a
// connection. The service never interprets it.
type Identity string

// Room represents a chat room.
type Room struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership binds an identity to the one room it may ever enter.
type Membership struct {
	Identity Identity  `json:"identity"`
	RoomID   string    `json:"room_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message represents a chat message accepted into a room's log.
type Message struct {
	ID       uint64    `json:"id"`
	RoomID   string    `json:"room_id"`
	Seq      int64     `json:"seq"`
	Identity Identity  `json:"identity"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}
