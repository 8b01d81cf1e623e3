package api

import "time"

// CreateRoomRequest is the create-or-join form. It is accepted both as a
// form post and as a JSON body.
type CreateRoomRequest struct {
	Username string `json:"username" form:"username"`
	RoomID   string `json:"room_id" form:"room_id"`
}

// CreateRoomResponse is returned to JSON clients after a successful
// create-or-join.
type CreateRoomResponse struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
	URL      string `json:"url"`
}

// RoomPageResponse is the session view of a room for its bound member.
type RoomPageResponse struct {
	RoomID    string `json:"room_id"`
	Username  string `json:"username"`
	WebSocket string `json:"websocket"`
}

// RoomResponse is the API response for a room.
type RoomResponse struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Members         int64     `json:"members"`
	LiveConnections int       `json:"live_connections"`
	Messages        int64     `json:"messages,omitempty"`
}

// MessageResponse is the API response for a message.
type MessageResponse struct {
	Seq       int64     `json:"seq"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	RoomID   string            `json:"room_id"`
	Messages []MessageResponse `json:"messages"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// IndexResponse describes the service entry points.
type IndexResponse struct {
	Service   string            `json:"service"`
	Endpoints map[string]string `json:"endpoints"`
}
