package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"gorm.io/gorm"
)

// Admission is the outcome of a successful Admit.
type Admission struct {
	RoomID      string
	CreatedRoom bool
	JoinedAt    time.Time
}

// MembershipLedger records which room each identity belongs to.
// A binding is written once and never changed.
type MembershipLedger struct {
	mu       sync.Mutex
	db       *gorm.DB
	registry *RoomRegistry
}

// NewMembershipLedger creates a ledger backed by db. New rooms requested
// through Admit are allocated by registry inside the same transaction.
func NewMembershipLedger(db *gorm.DB, registry *RoomRegistry) *MembershipLedger {
	return &MembershipLedger{db: db, registry: registry}
}

// Admit binds identity to requestedRoomID, or to a brand new room when
// requestedRoomID is empty. An identity that already holds a binding is
// rejected with ErrAlreadyMember whatever room it asks for.
func (l *MembershipLedger) Admit(ctx context.Context, identity domain.Identity, requestedRoomID string) (*Admission, error) {
	if identity == "" {
		return nil, domain.ErrForbidden
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var admission *Admission
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&MembershipRecord{}).Where("identity = ?", string(identity)).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: failed to look up membership: %v", domain.ErrStoreFailure, err)
		}
		if count > 0 {
			return domain.ErrAlreadyMember
		}

		registry := l.registry.WithTx(tx)
		roomID := requestedRoomID
		created := false
		if roomID == "" {
			room, err := registry.CreateRoom(ctx)
			if err != nil {
				return err
			}
			roomID = room.ID
			created = true
		} else {
			exists, err := registry.RoomExists(ctx, roomID)
			if err != nil {
				return err
			}
			if !exists {
				return domain.ErrRoomNotFound
			}
		}

		record := &MembershipRecord{
			Identity: string(identity),
			RoomID:   roomID,
			JoinedAt: time.Now().UTC(),
		}
		if err := tx.Create(record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyMember
			}
			return fmt.Errorf("%w: failed to create membership: %v", domain.ErrStoreFailure, err)
		}

		admission = &Admission{RoomID: roomID, CreatedRoom: created, JoinedAt: record.JoinedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return admission, nil
}

// RoomOf returns the room identity is bound to, or ErrNotMember.
func (l *MembershipLedger) RoomOf(ctx context.Context, identity domain.Identity) (string, error) {
	if identity == "" {
		return "", domain.ErrNotMember
	}
	var record MembershipRecord
	if err := l.db.WithContext(ctx).First(&record, "identity = ?", string(identity)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNotMember
		}
		return "", fmt.Errorf("%w: failed to look up membership: %v", domain.ErrStoreFailure, err)
	}
	return record.RoomID, nil
}

// CountMembers returns how many identities are bound to roomID.
func (l *MembershipLedger) CountMembers(ctx context.Context, roomID string) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&MembershipRecord{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: failed to count members: %v", domain.ErrStoreFailure, err)
	}
	return count, nil
}
