package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"gorm.io/gorm"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// MessageLog persists chat messages. Appends are serialized so each
// room's sequence numbers grow strictly in acceptance order.
type MessageLog struct {
	mu       sync.Mutex
	db       *gorm.DB
	registry *RoomRegistry
}

// NewMessageLog creates a message log backed by db.
func NewMessageLog(db *gorm.DB, registry *RoomRegistry) *MessageLog {
	return &MessageLog{db: db, registry: registry}
}

// Append stores a message and returns it with its id and sequence number.
// Content is stored as given, including empty strings.
func (l *MessageLog) Append(ctx context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var record *MessageRecord
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := l.registry.WithTx(tx).RoomExists(ctx, roomID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrRoomNotFound
		}

		var last int64
		if err := tx.Model(&MessageRecord{}).
			Where("room_id = ?", roomID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("%w: failed to read sequence: %v", domain.ErrStoreFailure, err)
		}

		record = &MessageRecord{
			RoomID:   roomID,
			Seq:      last + 1,
			Identity: string(identity),
			Username: username,
			Content:  content,
			SentAt:   time.Now().UTC(),
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("%w: failed to store message: %v", domain.ErrStoreFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := record.toDomain()
	return &msg, nil
}

// History returns up to limit messages of roomID with a sequence number
// greater than afterSeq, oldest first.
func (l *MessageLog) History(ctx context.Context, roomID string, afterSeq int64, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var records []MessageRecord
	if err := l.db.WithContext(ctx).
		Where("room_id = ? AND seq > ?", roomID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to read history: %v", domain.ErrStoreFailure, err)
	}

	messages := make([]domain.Message, 0, len(records))
	for i := range records {
		messages = append(messages, records[i].toDomain())
	}
	return messages, nil
}
