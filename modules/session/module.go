package session

import (
	"context"
	"fmt"

	"github.com/example/roomchat/events"
	"github.com/example/roomchat/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the room rosters and the live sessions.
type Module struct {
	manager *Manager
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new session module.
func NewModule(logger types.Logger) *Module {
	logger = logger.WithModule("session")
	return &Module{
		manager: NewManager(NewHub(logger), nil, logger),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "session"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"chat"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.manager.SetStore(chat.NewChatAdapter(container))
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.manager.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
	}
}

// Start verifies the chat dependency has been wired.
func (m *Module) Start(_ context.Context) error {
	if m.manager.store == nil {
		return fmt.Errorf("chat dependency not set")
	}
	m.logger.Info("Session module started")
	return nil
}

// Stop disconnects every live session.
func (m *Module) Stop(ctx context.Context) error {
	count := m.manager.SessionCount()
	if err := m.manager.CloseAll(ctx); err != nil {
		return fmt.Errorf("failed to close sessions: %w", err)
	}
	m.logger.Info("Session module stopped", "closedSessions", count)
	return nil
}

// Health reports live session and connection counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	hub := m.manager.Hub()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"sessions":         m.manager.SessionCount(),
			"live_connections": hub.ConnectionCount(),
			"rooms":            hub.RoomCount(),
		},
	}
}

// Manager returns the session manager for the transport to open sessions on.
func (m *Module) Manager() *Manager {
	return m.manager
}
