package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"gorm.io/gorm"
)

// maxIDAttempts bounds the collision retry loop when allocating room ids.
const maxIDAttempts = 10

// RoomRegistry allocates rooms and answers existence queries.
type RoomRegistry struct {
	db    *gorm.DB
	newID IDGenerator
}

// NewRoomRegistry creates a registry backed by db.
func NewRoomRegistry(db *gorm.DB, newID IDGenerator) *RoomRegistry {
	return &RoomRegistry{db: db, newID: newID}
}

// WithTx returns a registry whose queries run inside tx.
func (r *RoomRegistry) WithTx(tx *gorm.DB) *RoomRegistry {
	return &RoomRegistry{db: tx, newID: r.newID}
}

// CreateRoom allocates a fresh room id and persists the room.
func (r *RoomRegistry) CreateRoom(ctx context.Context) (*domain.Room, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := r.newID()

		exists, err := r.RoomExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		record := &RoomRecord{ID: id, CreatedAt: time.Now().UTC()}
		if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
			return nil, fmt.Errorf("%w: failed to create room: %v", domain.ErrStoreFailure, err)
		}
		return record.toDomain(), nil
	}

	return nil, fmt.Errorf("%w: failed to allocate a unique room id after %d attempts",
		domain.ErrStoreFailure, maxIDAttempts)
}

// RoomExists reports whether a room with the given id has been created.
func (r *RoomRegistry) RoomExists(ctx context.Context, id string) (bool, error) {
	if !IsValidRoomID(id) {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&RoomRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("%w: failed to look up room: %v", domain.ErrStoreFailure, err)
	}
	return count > 0, nil
}

// GetRoom retrieves a room by id.
func (r *RoomRegistry) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	if !IsValidRoomID(id) {
		return nil, domain.ErrRoomNotFound
	}
	var record RoomRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: failed to get room: %v", domain.ErrStoreFailure, err)
	}
	return record.toDomain(), nil
}
