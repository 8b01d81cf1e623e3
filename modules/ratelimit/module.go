package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/example/roomchat/domain/ratelimit"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in Redis.
const DefaultKeyPrefix = "roomchat:ratelimit:"

// Config configures the rate limiting module. An empty RedisAddr disables
// limiting.
type Config struct {
	RedisAddr     string
	RedisPassword string
	Limit         ratelimit.Config
	KeyPrefix     string
}

// Module provides rate limiting as a mono module.
type Module struct {
	config  Config
	client  *redis.Client
	limiter atomic.Pointer[SlidingWindowLimiter]
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new rate limiting module.
func NewModule(config Config) *Module {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	return &Module{config: config}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Enabled reports whether the module will limit requests once started.
func (m *Module) Enabled() bool {
	return m.config.RedisAddr != "" && m.config.Limit.Enabled()
}

// Start connects to Redis and installs the limiter.
func (m *Module) Start(ctx context.Context) error {
	if !m.Enabled() {
		log.Println("[ratelimit] Module started - limiting disabled")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     m.config.RedisAddr,
		Password: m.config.RedisPassword,
	})
	if err := m.client.Ping(ctx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.limiter.Store(NewSlidingWindowLimiter(m.client, m.config.Limit, m.config.KeyPrefix))
	log.Printf("[ratelimit] Connected to Redis at %s (%d requests per %s)",
		m.config.RedisAddr, m.config.Limit.RequestsPerWindow, m.config.Limit.WindowSize)
	return nil
}

// Stop removes the limiter and closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	m.limiter.Store(nil)
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[ratelimit] Error closing Redis connection: %v", err)
		}
		m.client = nil
	}
	log.Println("[ratelimit] Module stopped")
	return nil
}

// Health pings Redis when limiting is enabled.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if !m.Enabled() {
		return mono.HealthStatus{
			Healthy: true,
			Message: "disabled",
		}
	}
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "Redis client not initialized",
		}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("Redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis":  m.config.RedisAddr,
			"limit":  m.config.Limit.RequestsPerWindow,
			"window": m.config.Limit.WindowSize.String(),
		},
	}
}

// Middleware returns a handler limiting requests by keyFn. It may be built
// before Start; until then requests pass through.
func (m *Module) Middleware(keyFn KeyFunc) fiber.Handler {
	return Handler(m.currentLimiter, m.config.Limit.RequestsPerWindow, keyFn)
}

func (m *Module) currentLimiter() ratelimit.Limiter {
	if l := m.limiter.Load(); l != nil {
		return l
	}
	return nil
}
