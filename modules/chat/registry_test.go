package chat

import (
	"context"
	"errors"
	"testing"

	domain "github.com/example/roomchat/domain/chat"
)

func TestNewIDGenerator(t *testing.T) {
	gen, err := NewIDGenerator(DefaultRoomIDLength)
	if err != nil {
		t.Fatalf("NewIDGenerator() error = %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if len(id) != DefaultRoomIDLength {
			t.Fatalf("id %q has length %d, want %d", id, len(id), DefaultRoomIDLength)
		}
		if !IsValidRoomID(id) {
			t.Fatalf("id %q is not a valid room id", id)
		}
		seen[id] = true
	}
	if len(seen) < 990 {
		t.Errorf("expected nearly unique ids, got %d distinct of 1000", len(seen))
	}
}

func TestIsValidRoomID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc123XY", true},
		{"", false},
		{"has space", false},
		{"../etc", false},
		{"ünïcode", false},
		{"0123456789012345678901234567890123", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidRoomID(tt.id); got != tt.want {
				t.Errorf("IsValidRoomID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestRoomRegistry_CreateRoom(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, setupTestDB(t))

	room, err := registry.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.ID == "" {
		t.Fatal("CreateRoom() returned empty id")
	}
	if room.CreatedAt.IsZero() {
		t.Error("CreateRoom() returned zero creation time")
	}

	exists, err := registry.RoomExists(ctx, room.ID)
	if err != nil {
		t.Fatalf("RoomExists() error = %v", err)
	}
	if !exists {
		t.Error("created room does not exist")
	}
}

func TestRoomRegistry_CreateRoom_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, setupTestDB(t))

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		room, err := registry.CreateRoom(ctx)
		if err != nil {
			t.Fatalf("CreateRoom() error = %v", err)
		}
		if seen[room.ID] {
			t.Fatalf("duplicate room id %q", room.ID)
		}
		seen[room.ID] = true
	}
}

func TestRoomRegistry_CreateRoom_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := NewRoomRegistry(db, sequenceIDs("taken001", "taken001", "fresh001"))

	if _, err := registry.CreateRoom(ctx); err != nil {
		t.Fatalf("first CreateRoom() error = %v", err)
	}

	room, err := registry.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("second CreateRoom() error = %v", err)
	}
	if room.ID != "fresh001" {
		t.Errorf("expected colliding id to be skipped, got %q", room.ID)
	}
}

func TestRoomRegistry_CreateRoom_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := NewRoomRegistry(db, sequenceIDs("always01"))

	if _, err := registry.CreateRoom(ctx); err != nil {
		t.Fatalf("first CreateRoom() error = %v", err)
	}

	_, err := registry.CreateRoom(ctx)
	if !errors.Is(err, domain.ErrStoreFailure) {
		t.Errorf("expected ErrStoreFailure, got %v", err)
	}
}

func TestRoomRegistry_RoomExists(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, setupTestDB(t))

	room, err := registry.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"created room", room.ID, true},
		{"unknown room", "nosuch00", false},
		{"empty id", "", false},
		{"malformed id", "x' OR '1'='1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.RoomExists(ctx, tt.id)
			if err != nil {
				t.Fatalf("RoomExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RoomExists(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestRoomRegistry_GetRoom(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, setupTestDB(t))

	room, err := registry.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	found, err := registry.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if found.ID != room.ID {
		t.Errorf("GetRoom() id = %q, want %q", found.ID, room.ID)
	}

	if _, err := registry.GetRoom(ctx, "missing0"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("GetRoom(missing) error = %v, want ErrRoomNotFound", err)
	}
}
