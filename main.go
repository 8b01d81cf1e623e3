package main

import (
	"context"
	"log"
	"os"

	"github.com/example/roomchat/config"
	ratelimitdomain "github.com/example/roomchat/domain/ratelimit"
	"github.com/example/roomchat/modules/activity"
	"github.com/example/roomchat/modules/api"
	"github.com/example/roomchat/modules/chat"
	"github.com/example/roomchat/modules/ratelimit"
	"github.com/example/roomchat/modules/session"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Room Chat - Fiber + WebSocket ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.NATSStorageDir),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	// Create modules
	chatModule := chat.NewModule(chat.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Debug:  cfg.DBDebug,
	}, logger)
	sessionModule := session.NewModule(logger)
	activityModule := activity.NewModule(logger)
	rateModule := ratelimit.NewModule(ratelimit.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		Limit: ratelimitdomain.Config{
			RequestsPerWindow: cfg.RoomRateLimit,
			WindowSize:        cfg.RoomRateWindow,
		},
	})
	apiModule := api.NewModule(api.Config{
		Addr:               cfg.Addr(),
		ProxyHeader:        cfg.ProxyHeader,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IdleTimeout:        cfg.IdleTimeout,
		SendBuffer:         cfg.SendBuffer,
	})

	// The session manager, limiter and metrics registry are in-process
	// objects, so they are injected directly rather than via ServiceContainer.
	apiModule.SetSessions(sessionModule.Manager())
	apiModule.SetRoomLimiter(rateModule.Middleware(api.IdentityKey))
	apiModule.SetMetrics(activityModule.Gatherer())
	if cfg.IdentityMode == config.IdentityModeToken {
		apiModule.SetIdentityResolver(api.NewTokenResolver(cfg.IdentitySecret))
	}

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - chat: rooms, memberships and message log (ServiceProviderModule + EventEmitterModule)
	// - session: live connections and broadcast (depends on chat)
	// - activity: event consumer, per-room counters and metrics
	// - ratelimit: Redis sliding window for POST /room
	// - api: Fiber HTTP/WebSocket server (depends on chat, activity)
	app.Register(chatModule)
	app.Register(sessionModule)
	app.Register(activityModule)
	app.Register(rateModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg, rateModule.Enabled())

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config, rateLimited bool) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Configuration:")
	log.Printf("  - Database: %s (%s)", cfg.DBDriver, cfg.DBDSN)
	log.Printf("  - Identity: %s", cfg.IdentityMode)
	if cfg.ProxyHeader != "" {
		log.Printf("  - Proxy header: %s", cfg.ProxyHeader)
	}
	if rateLimited {
		log.Printf("  - Room rate limit: %d per %s (redis %s)", cfg.RoomRateLimit, cfg.RoomRateWindow, cfg.RedisAddr)
	} else {
		log.Println("  - Room rate limit: disabled")
	}
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%d):", cfg.HTTPPort)
	log.Println("  POST   /room                       - Create or join a room")
	log.Println("  GET    /room/:id?username=         - Room page (members only)")
	log.Println("  GET    /api/v1/rooms/:id           - Room details")
	log.Println("  GET    /api/v1/rooms/:id/history   - Message history (members only)")
	log.Println("  GET    /health                     - Health check")
	log.Println("  GET    /metrics                    - Prometheus metrics")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%d/ws):", cfg.HTTPPort)
	log.Println("  Client events: join {room, user}, text {msg}, leave")
	log.Println("  Server events: status {msg}, message {user, msg, seq}, error {error}")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
