package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// Config configures the chat module's store.
type Config struct {
	Driver string
	DSN    string
	Debug  bool
}

// Module owns the room registry, the membership ledger and the message log,
// and exposes them as request-reply services.
type Module struct {
	config   Config
	db       *gorm.DB
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(config Config, logger types.Logger) *Module {
	return &Module{
		config: config,
		logger: logger.WithModule("chat"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.MemberAdmittedV1.ToBase(),
		events.MessageSentV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
// They are reachable as "services.chat.<name>".
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAdmit, json.Unmarshal, json.Marshal, m.handleAdmit,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAdmit, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRoomOf, json.Unmarshal, json.Marshal, m.handleRoomOf,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomOf, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRoomExists, json.Unmarshal, json.Marshal, m.handleRoomExists,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomExists, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetRoom, json.Unmarshal, json.Marshal, m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoom, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAppendMessage, json.Unmarshal, json.Marshal, m.handleAppendMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAppendMessage, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceHistory, json.Unmarshal, json.Marshal, m.handleHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceHistory, err)
	}

	m.logger.Info("Registered services",
		"services", "services.chat.{admit,room-of,room-exists,get-room,append-message,history}")
	return nil
}

// Start opens the database, runs migrations and builds the service.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Connecting to database", "driver", m.config.Driver)

	db, err := OpenDatabase(m.config.Driver, m.config.DSN, m.config.Debug)
	if err != nil {
		return err
	}
	m.db = db

	newID, err := NewIDGenerator(DefaultRoomIDLength)
	if err != nil {
		return err
	}

	registry := NewRoomRegistry(db, newID)
	m.service = NewService(
		registry,
		NewMembershipLedger(db, registry),
		NewMessageLog(db, registry),
		m.eventBus,
		m.logger,
	)

	m.logger.Info("Chat module started")
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Chat module stopped")
	return nil
}

// Health pings the database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.config.Driver,
		},
	}
}

// Service handlers. Domain errors travel as codes in the reply so the
// caller can map them back to sentinels.

func (m *Module) handleAdmit(ctx context.Context, req AdmitRequest, _ *mono.Msg) (AdmitResponse, error) {
	ctx, cancel := withCallerDeadline(ctx, req.Deadline)
	defer cancel()

	admission, err := m.service.Admit(ctx, domain.Identity(req.Identity), req.RoomID)
	if err != nil {
		return AdmitResponse{Error: domain.Code(err)}, nil
	}
	return AdmitResponse{
		RoomID:      admission.RoomID,
		CreatedRoom: admission.CreatedRoom,
		JoinedAt:    admission.JoinedAt,
	}, nil
}

func (m *Module) handleRoomOf(ctx context.Context, req RoomOfRequest, _ *mono.Msg) (RoomOfResponse, error) {
	roomID, err := m.service.RoomOf(ctx, domain.Identity(req.Identity))
	if err != nil {
		return RoomOfResponse{Error: domain.Code(err)}, nil
	}
	return RoomOfResponse{RoomID: roomID}, nil
}

func (m *Module) handleRoomExists(ctx context.Context, req RoomExistsRequest, _ *mono.Msg) (RoomExistsResponse, error) {
	exists, err := m.service.RoomExists(ctx, req.RoomID)
	if err != nil {
		return RoomExistsResponse{Error: domain.Code(err)}, nil
	}
	return RoomExistsResponse{Exists: exists}, nil
}

func (m *Module) handleGetRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	room, members, err := m.service.GetRoom(ctx, req.RoomID)
	if err != nil {
		return GetRoomResponse{Error: domain.Code(err)}, nil
	}
	return GetRoomResponse{Room: room, Members: members}, nil
}

func (m *Module) handleAppendMessage(ctx context.Context, req AppendMessageRequest, _ *mono.Msg) (AppendMessageResponse, error) {
	ctx, cancel := withCallerDeadline(ctx, req.Deadline)
	defer cancel()

	msg, err := m.service.AppendMessage(ctx, req.RoomID, domain.Identity(req.Identity), req.Username, req.Content)
	if err != nil {
		return AppendMessageResponse{Error: domain.Code(err)}, nil
	}
	return AppendMessageResponse{Message: msg}, nil
}

func (m *Module) handleHistory(ctx context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	messages, err := m.service.History(ctx, req.RoomID, req.AfterSeq, req.Limit)
	if err != nil {
		return HistoryResponse{Error: domain.Code(err)}, nil
	}
	return HistoryResponse{Messages: messages}, nil
}

// withCallerDeadline bounds ctx by the deadline the caller sent, so work
// the caller has stopped waiting for is rolled back.
func withCallerDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}
