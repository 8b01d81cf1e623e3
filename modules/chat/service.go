package chat

import (
	"context"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Service ties the registry, ledger and message log together and
// announces state changes on the event bus.
type Service struct {
	registry *RoomRegistry
	ledger   *MembershipLedger
	log      *MessageLog
	eventBus mono.EventBus
	logger   types.Logger
}

// NewService creates a new chat service. eventBus may be nil, in which
// case no events are published.
func NewService(registry *RoomRegistry, ledger *MembershipLedger, log *MessageLog, eventBus mono.EventBus, logger types.Logger) *Service {
	return &Service{
		registry: registry,
		ledger:   ledger,
		log:      log,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Admit binds identity to roomID, creating a room when roomID is empty.
func (s *Service) Admit(ctx context.Context, identity domain.Identity, roomID string) (*Admission, error) {
	admission, err := s.ledger.Admit(ctx, identity, roomID)
	if err != nil {
		s.logger.Debug("Admission rejected", "identity", identity, "roomID", roomID, "error", err)
		return nil, err
	}

	if admission.CreatedRoom {
		s.publishRoomCreated(admission.RoomID, identity)
	}
	s.publishMemberAdmitted(admission, identity)

	s.logger.Info("Identity admitted",
		"identity", identity,
		"roomID", admission.RoomID,
		"createdRoom", admission.CreatedRoom)
	return admission, nil
}

// RoomOf returns the room identity is bound to.
func (s *Service) RoomOf(ctx context.Context, identity domain.Identity) (string, error) {
	return s.ledger.RoomOf(ctx, identity)
}

// RoomExists reports whether roomID names a created room.
func (s *Service) RoomExists(ctx context.Context, roomID string) (bool, error) {
	return s.registry.RoomExists(ctx, roomID)
}

// GetRoom returns a room and the number of identities bound to it.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*domain.Room, int64, error) {
	room, err := s.registry.GetRoom(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	members, err := s.ledger.CountMembers(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	return room, members, nil
}

// AppendMessage stores a message in roomID's log.
func (s *Service) AppendMessage(ctx context.Context, roomID string, identity domain.Identity, username, content string) (*domain.Message, error) {
	msg, err := s.log.Append(ctx, roomID, identity, username, content)
	if err != nil {
		s.logger.Warn("Failed to append message", "roomID", roomID, "error", err)
		return nil, err
	}

	if s.eventBus != nil {
		event := events.MessageSentEvent{
			MessageID: msg.ID,
			RoomID:    msg.RoomID,
			Seq:       msg.Seq,
			Identity:  string(msg.Identity),
			Username:  msg.Username,
			Content:   msg.Content,
			Timestamp: msg.SentAt,
		}
		if err := events.MessageSentV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("Failed to publish MessageSent event", "error", err)
		}
	}

	s.logger.Debug("Message appended", "roomID", roomID, "seq", msg.Seq)
	return msg, nil
}

// History returns messages of roomID after afterSeq.
func (s *Service) History(ctx context.Context, roomID string, afterSeq int64, limit int) ([]domain.Message, error) {
	exists, err := s.registry.RoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	return s.log.History(ctx, roomID, afterSeq, limit)
}

func (s *Service) publishRoomCreated(roomID string, identity domain.Identity) {
	if s.eventBus == nil {
		return
	}
	event := events.RoomCreatedEvent{
		RoomID:    roomID,
		CreatedBy: string(identity),
		Timestamp: time.Now(),
	}
	if err := events.RoomCreatedV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("Failed to publish RoomCreated event", "error", err)
	}
}

func (s *Service) publishMemberAdmitted(admission *Admission, identity domain.Identity) {
	if s.eventBus == nil {
		return
	}
	event := events.MemberAdmittedEvent{
		RoomID:      admission.RoomID,
		Identity:    string(identity),
		CreatedRoom: admission.CreatedRoom,
		Timestamp:   admission.JoinedAt,
	}
	if err := events.MemberAdmittedV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("Failed to publish MemberAdmitted event", "error", err)
	}
}
