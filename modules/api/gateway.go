package api

import (
	"context"
	"errors"
	"strings"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/chat"
)

// Gateway is the HTTP-side entry point to rooms: it binds identities to
// rooms and guards the room page.
type Gateway struct {
	chat chat.ChatPort
}

// NewGateway creates a new Gateway.
func NewGateway(chatPort chat.ChatPort) *Gateway {
	return &Gateway{chat: chatPort}
}

// CreateOrJoin binds identity to roomID, or to a new room when roomID is
// empty, and returns the room the identity is now bound to.
func (g *Gateway) CreateOrJoin(ctx context.Context, identity domain.Identity, displayName, roomID string) (string, error) {
	if domain.NormalizeName(displayName) == "" {
		return "", domain.ErrMissingName
	}

	admission, err := g.chat.Admit(ctx, identity, strings.TrimSpace(roomID))
	if err != nil {
		return "", err
	}
	return admission.RoomID, nil
}

// AuthorizeRoomPage allows the request only when identity is bound to roomID.
func (g *Gateway) AuthorizeRoomPage(ctx context.Context, identity domain.Identity, roomID string) error {
	bound, err := g.chat.RoomOf(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotMember) {
			return domain.ErrForbidden
		}
		return err
	}
	if bound != roomID {
		return domain.ErrForbidden
	}
	return nil
}
