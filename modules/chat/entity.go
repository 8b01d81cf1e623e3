package chat

import (
	"time"

	domain "github.com/example/roomchat/domain/chat"
)

// RoomRecord is the persisted form of a room.
type RoomRecord struct {
	ID        string    `gorm:"primaryKey;size:32"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for RoomRecord.
func (RoomRecord) TableName() string {
	return "rooms"
}

// MembershipRecord is the persisted identity-to-room binding.
// The primary key on Identity enforces one binding per identity.
type MembershipRecord struct {
	Identity string    `gorm:"primaryKey;size:255"`
	RoomID   string    `gorm:"size:32;not null;index"`
	JoinedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for MembershipRecord.
func (MembershipRecord) TableName() string {
	return "memberships"
}

// MessageRecord is a persisted chat message.
type MessageRecord struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement"`
	RoomID   string    `gorm:"size:32;not null;uniqueIndex:idx_messages_room_seq,priority:1"`
	Seq      int64     `gorm:"not null;uniqueIndex:idx_messages_room_seq,priority:2"`
	Identity string    `gorm:"size:255;not null"`
	Username string    `gorm:"size:255;not null"`
	Content  string    `gorm:"type:text;not null"`
	SentAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for MessageRecord.
func (MessageRecord) TableName() string {
	return "messages"
}

func (r *RoomRecord) toDomain() *domain.Room {
	return &domain.Room{ID: r.ID, CreatedAt: r.CreatedAt}
}

func (r *MessageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:       r.ID,
		RoomID:   r.RoomID,
		Seq:      r.Seq,
		Identity: domain.Identity(r.Identity),
		Username: r.Username,
		Content:  r.Content,
		SentAt:   r.SentAt,
	}
}
