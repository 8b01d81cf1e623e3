package session

import (
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// roster is the set of live connections in one room. Its mutex
// serializes every join, leave and broadcast in that room.
type roster struct {
	mu    sync.Mutex
	peers map[string]Peer
}

// Hub tracks the rosters of all rooms. Rosters are never removed since
// rooms are never deleted.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*roster
	logger types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]*roster),
		logger: logger,
	}
}

// roster returns the roster for roomID, creating it on first use.
func (h *Hub) roster(roomID string) *roster {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if ok {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[roomID]; ok {
		return r
	}
	r = &roster{peers: make(map[string]Peer)}
	h.rooms[roomID] = r
	return r
}

// broadcastLocked delivers evt to every peer in r. Peers that cannot
// accept the event are dropped from the roster and closed. The caller
// must hold r.mu.
func (h *Hub) broadcastLocked(roomID string, r *roster, evt Event) {
	var dropped []Peer
	for id, p := range r.peers {
		if !p.Send(evt) {
			delete(r.peers, id)
			dropped = append(dropped, p)
		}
	}
	for _, p := range dropped {
		h.logger.Warn("Dropping unresponsive connection", "connectionID", p.ID(), "roomID", roomID)
		p.Close()
	}
}

// RoomSize returns the number of live connections in roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// ConnectionCount returns the number of live connections in all rooms.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	rosters := make([]*roster, 0, len(h.rooms))
	for _, r := range h.rooms {
		rosters = append(rosters, r)
	}
	h.mu.RUnlock()

	total := 0
	for _, r := range rosters {
		r.mu.Lock()
		total += len(r.peers)
		r.mu.Unlock()
	}
	return total
}

// RoomCount returns the number of rooms that have had a live connection.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
