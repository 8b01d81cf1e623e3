package chat

import (
	"testing"

	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any) {}
func (m *mockLogger) Warn(_ string, _ ...any) {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger { return m }

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenDatabase("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// sequenceIDs returns a generator that yields ids in order and then
// repeats the last one.
func sequenceIDs(ids ...string) IDGenerator {
	i := 0
	return func() string {
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	}
}

func newTestRegistry(t *testing.T, db *gorm.DB) *RoomRegistry {
	t.Helper()
	gen, err := NewIDGenerator(DefaultRoomIDLength)
	if err != nil {
		t.Fatalf("NewIDGenerator() error = %v", err)
	}
	return NewRoomRegistry(db, gen)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := setupTestDB(t)
	registry := newTestRegistry(t, db)
	return NewService(
		registry,
		NewMembershipLedger(db, registry),
		NewMessageLog(db, registry),
		nil,
		&mockLogger{},
	)
}
