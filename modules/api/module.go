package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/roomchat/modules/activity"
	"github.com/example/roomchat/modules/chat"
	"github.com/example/roomchat/modules/session"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the HTTP server.
type Config struct {
	Addr               string
	ProxyHeader        string
	CORSAllowedOrigins string
	IdleTimeout        time.Duration
	SendBuffer         int
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	config          Config
	app             *fiber.App
	chatAdapter     chat.ChatPort
	activityAdapter activity.ActivityPort
	gateway         *Gateway
	sessions        *session.Manager
	identity        IdentityResolver
	roomLimiter     fiber.Handler
	gatherer        prometheus.Gatherer
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config) *APIModule {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 60 * time.Second
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 64
	}
	if config.CORSAllowedOrigins == "" {
		config.CORSAllowedOrigins = "*"
	}
	return &APIModule{
		config:      config,
		identity:    AddressResolver{},
		roomLimiter: passThrough,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"chat", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.chatAdapter = chat.NewChatAdapter(container)
		m.gateway = NewGateway(m.chatAdapter)
	case "activity":
		m.activityAdapter = activity.NewActivityAdapter(container)
	}
}

// SetSessions sets the session manager (called from main.go).
func (m *APIModule) SetSessions(sessions *session.Manager) {
	m.sessions = sessions
}

// SetIdentityResolver replaces the default address-based resolver.
func (m *APIModule) SetIdentityResolver(resolver IdentityResolver) {
	m.identity = resolver
}

// SetRoomLimiter sets the middleware guarding POST /room.
func (m *APIModule) SetRoomLimiter(limiter fiber.Handler) {
	m.roomLimiter = limiter
}

// SetMetrics sets the registry served at /metrics.
func (m *APIModule) SetMetrics(gatherer prometheus.Gatherer) {
	m.gatherer = gatherer
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.chatAdapter == nil {
		return fmt.Errorf("chat adapter dependency not set")
	}
	if m.sessions == nil {
		return fmt.Errorf("session manager dependency not set")
	}

	m.app = m.buildApp()

	// Start server in goroutine
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", m.config.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"addr": m.config.Addr,
	}
	if m.sessions != nil {
		details["live_connections"] = m.sessions.Hub().ConnectionCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// buildApp creates the Fiber app with middleware and routes.
func (m *APIModule) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ProxyHeader:           m.config.ProxyHeader,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	// Add recovery middleware
	app.Use(recover.New())

	// Add logging middleware
	app.Use(loggerMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins: m.config.CORSAllowedOrigins,
	}))

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[api] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}
