package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/roomchat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Service names registered by the activity module.
const (
	ServiceRoomStats = "room-stats"
	ServiceSummary   = "summary"
)

// Module consumes chat and session events and keeps activity counters.
type Module struct {
	registry *prometheus.Registry
	store    *Store
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new activity module with its own metrics registry.
func NewModule(logger types.Logger) *Module {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Module{
		registry: registry,
		store:    NewStore(registry),
		logger:   logger.WithModule("activity"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// RegisterEventConsumers registers handlers for chat and session events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberAdmittedV1, m.handleMemberAdmitted, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberAdmitted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"RoomCreated.v1", "MemberAdmitted.v1", "MessageSent.v1", "UserJoined.v1", "UserLeft.v1"})
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.store.RecordRoomCreated(event.RoomID, event.Timestamp)
	m.logger.Debug("Recorded room creation", "roomID", event.RoomID)
	return nil
}

func (m *Module) handleMemberAdmitted(_ context.Context, event events.MemberAdmittedEvent, _ *mono.Msg) error {
	m.store.RecordAdmission(event.RoomID, event.CreatedRoom)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.store.RecordMessage(event.RoomID, len(event.Content), event.Timestamp)
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.store.RecordJoin(event.RoomID)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.store.RecordLeave(event.RoomID, event.Abrupt)
	return nil
}

// RegisterServices registers the activity query services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRoomStats, json.Unmarshal, json.Marshal, m.handleRoomStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomStats, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSummary, json.Unmarshal, json.Marshal, m.handleSummary,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSummary, err)
	}

	m.logger.Info("Registered activity services", "services", []string{ServiceRoomStats, ServiceSummary})
	return nil
}

// RoomStatsRequest asks for one room's activity.
type RoomStatsRequest struct {
	RoomID string `json:"room_id"`
}

// SummaryRequest asks for the service-wide summary.
type SummaryRequest struct{}

func (m *Module) handleRoomStats(_ context.Context, req RoomStatsRequest, _ *mono.Msg) (RoomStats, error) {
	stats, _ := m.store.RoomStats(req.RoomID)
	return stats, nil
}

func (m *Module) handleSummary(_ context.Context, _ SummaryRequest, _ *mono.Msg) (Summary, error) {
	return m.store.Summary(), nil
}

// Start initializes the activity module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	summary := m.store.Summary()
	m.logger.Info("Activity module stopped",
		"roomsCreated", summary.RoomsCreated,
		"messages", summary.Messages)
	return nil
}

// Health reports the tracked totals.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	summary := m.store.Summary()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms_tracked":    summary.RoomsTracked,
			"messages":         summary.Messages,
			"live_connections": summary.LiveConnections,
		},
	}
}

// Gatherer returns the registry holding the module's collectors.
func (m *Module) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Store returns the activity store.
func (m *Module) Store() *Store {
	return m.store
}
