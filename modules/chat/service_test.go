package chat

import (
	"context"
	"errors"
	"testing"

	domain "github.com/example/roomchat/domain/chat"
)

func TestService_AdmitThenRoomOf(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	// Identity A creates a room, identity B joins it.
	created, err := service.Admit(ctx, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Admit(A) error = %v", err)
	}
	if !created.CreatedRoom {
		t.Error("Admit(A) expected a new room")
	}

	joined, err := service.Admit(ctx, "10.0.0.2", created.RoomID)
	if err != nil {
		t.Fatalf("Admit(B) error = %v", err)
	}
	if joined.RoomID != created.RoomID {
		t.Errorf("Admit(B) room = %q, want %q", joined.RoomID, created.RoomID)
	}

	for _, identity := range []domain.Identity{"10.0.0.1", "10.0.0.2"} {
		roomID, err := service.RoomOf(ctx, identity)
		if err != nil {
			t.Fatalf("RoomOf(%s) error = %v", identity, err)
		}
		if roomID != created.RoomID {
			t.Errorf("RoomOf(%s) = %q, want %q", identity, roomID, created.RoomID)
		}
	}
}

func TestService_GetRoom(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	admission, err := service.Admit(ctx, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if _, err := service.Admit(ctx, "10.0.0.2", admission.RoomID); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	room, members, err := service.GetRoom(ctx, admission.RoomID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if room.ID != admission.RoomID {
		t.Errorf("GetRoom() id = %q, want %q", room.ID, admission.RoomID)
	}
	if members != 2 {
		t.Errorf("GetRoom() members = %d, want 2", members)
	}

	if _, _, err := service.GetRoom(ctx, "missing0"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("GetRoom(missing) error = %v, want ErrRoomNotFound", err)
	}
}

func TestService_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	admission, err := service.Admit(ctx, "10.0.0.1", "")
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	msg, err := service.AppendMessage(ctx, admission.RoomID, "10.0.0.1", "alice", "hi")
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	history, err := service.History(ctx, admission.RoomID, 0, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("History() len = %d, want 1", len(history))
	}
	got := history[0]
	if got.ID != msg.ID || got.Username != "alice" || got.Content != "hi" || got.Identity != "10.0.0.1" {
		t.Errorf("History()[0] = %+v, want message %+v", got, msg)
	}

	if _, err := service.History(ctx, "missing0", 0, 10); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("History(missing) error = %v, want ErrRoomNotFound", err)
	}
}

func TestErrorCodes_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"missing name", domain.ErrMissingName, "missing_name"},
		{"already member", domain.ErrAlreadyMember, "already_member"},
		{"room not found", domain.ErrRoomNotFound, "room_not_found"},
		{"forbidden", domain.ErrForbidden, "forbidden"},
		{"not member", domain.ErrNotMember, "not_member"},
		{"wrapped store failure", errors.Join(domain.ErrStoreFailure, errors.New("disk full")), "store_failure"},
		{"unknown error", errors.New("boom"), "store_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := domain.Code(tt.err)
			if code != tt.code {
				t.Fatalf("Code() = %q, want %q", code, tt.code)
			}
			back := domain.FromCode(code)
			if tt.err == nil {
				if back != nil {
					t.Errorf("FromCode(%q) = %v, want nil", code, back)
				}
				return
			}
			if domain.Code(back) != code {
				t.Errorf("FromCode(%q) = %v, does not round-trip", code, back)
			}
		})
	}
}
