package activity

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RoomStats tracks activity of a single room.
type RoomStats struct {
	RoomID          string    `json:"room_id"`
	Members         int64     `json:"members"`
	Messages        int64     `json:"messages"`
	LiveConnections int64     `json:"live_connections"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	LastMessageAt   time.Time `json:"last_message_at,omitempty"`
}

// Summary is the service-wide view of activity.
type Summary struct {
	RoomsCreated    int64 `json:"rooms_created"`
	Admissions      int64 `json:"admissions"`
	Messages        int64 `json:"messages"`
	LiveConnections int64 `json:"live_connections"`
	RoomsTracked    int   `json:"rooms_tracked"`
}

// metrics holds the Prometheus collectors fed by chat events.
type metrics struct {
	roomsCreated    prometheus.Counter
	admissions      *prometheus.CounterVec
	messages        prometheus.Counter
	messageBytes    prometheus.Histogram
	joins           prometheus.Counter
	leaves          *prometheus.CounterVec
	liveConnections prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		roomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_rooms_created_total",
			Help: "Number of rooms created.",
		}),
		admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_admissions_total",
			Help: "Number of identities bound to a room.",
		}, []string{"kind"}),
		messages: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_messages_total",
			Help: "Number of messages accepted into room logs.",
		}),
		messageBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "roomchat_message_bytes",
			Help:    "Size of accepted message content in bytes.",
			Buckets: prometheus.ExponentialBuckets(8, 4, 6),
		}),
		joins: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_session_joins_total",
			Help: "Number of live connections that joined a room.",
		}),
		leaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_session_leaves_total",
			Help: "Number of live connections that left a room.",
		}, []string{"reason"}),
		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_live_connections",
			Help: "Live connections currently in a room.",
		}),
	}
}

// Store keeps per-room activity counters and mirrors them into Prometheus.
type Store struct {
	mu      sync.RWMutex
	rooms   map[string]*RoomStats
	summary Summary
	metrics *metrics
}

// NewStore creates a Store registering its collectors on reg.
func NewStore(reg prometheus.Registerer) *Store {
	return &Store{
		rooms:   make(map[string]*RoomStats),
		metrics: newMetrics(reg),
	}
}

// room returns the stats entry for roomID, creating it. The caller must hold s.mu.
func (s *Store) room(roomID string) *RoomStats {
	stats, ok := s.rooms[roomID]
	if !ok {
		stats = &RoomStats{RoomID: roomID}
		s.rooms[roomID] = stats
	}
	return stats
}

// RecordRoomCreated records a newly created room.
func (s *Store) RecordRoomCreated(roomID string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room(roomID).CreatedAt = createdAt
	s.summary.RoomsCreated++
	s.metrics.roomsCreated.Inc()
}

// RecordAdmission records an identity bound to roomID.
func (s *Store) RecordAdmission(roomID string, createdRoom bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room(roomID).Members++
	s.summary.Admissions++

	kind := "join"
	if createdRoom {
		kind = "create"
	}
	s.metrics.admissions.WithLabelValues(kind).Inc()
}

// RecordMessage records a message accepted into roomID's log.
func (s *Store) RecordMessage(roomID string, size int, sentAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.room(roomID)
	stats.Messages++
	if sentAt.After(stats.LastMessageAt) {
		stats.LastMessageAt = sentAt
	}
	s.summary.Messages++
	s.metrics.messages.Inc()
	s.metrics.messageBytes.Observe(float64(size))
}

// RecordJoin records a live connection entering roomID.
func (s *Store) RecordJoin(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room(roomID).LiveConnections++
	s.summary.LiveConnections++
	s.metrics.joins.Inc()
	s.metrics.liveConnections.Inc()
}

// RecordLeave records a live connection leaving roomID.
func (s *Store) RecordLeave(roomID string, abrupt bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.room(roomID)
	if stats.LiveConnections > 0 {
		stats.LiveConnections--
	}
	if s.summary.LiveConnections > 0 {
		s.summary.LiveConnections--
		s.metrics.liveConnections.Dec()
	}

	reason := "leave"
	if abrupt {
		reason = "disconnect"
	}
	s.metrics.leaves.WithLabelValues(reason).Inc()
}

// RoomStats returns a copy of roomID's stats.
func (s *Store) RoomStats(roomID string) (RoomStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.rooms[roomID]
	if !ok {
		return RoomStats{RoomID: roomID}, false
	}
	return *stats, true
}

// Summary returns the service-wide activity summary.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := s.summary
	summary.RoomsTracked = len(s.rooms)
	return summary
}
