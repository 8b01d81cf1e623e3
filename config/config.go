// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Identity modes.
const (
	IdentityModeAddress = "address"
	IdentityModeToken   = "token"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every tunable of the service.
type Config struct {
	HTTPPort           int           `env:"HTTP_PORT" envDefault:"3000"`
	ProxyHeader        string        `env:"PROXY_HEADER"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	NATSStorageDir     string        `env:"NATS_STORAGE_DIR" envDefault:"/tmp/roomchat"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"roomchat.db"`
	DBDebug  bool   `env:"DB_DEBUG" envDefault:"false"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RoomRateLimit  int           `env:"ROOM_RATE_LIMIT" envDefault:"10"`
	RoomRateWindow time.Duration `env:"ROOM_RATE_WINDOW" envDefault:"1m"`

	IdentityMode   string `env:"IDENTITY_MODE" envDefault:"address"`
	IdentitySecret string `env:"IDENTITY_SECRET"`

	IdleTimeout time.Duration `env:"WS_IDLE_TIMEOUT" envDefault:"60s"`
	SendBuffer  int           `env:"WS_SEND_BUFFER" envDefault:"64"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field combinations the struct tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort))
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	switch c.IdentityMode {
	case IdentityModeAddress:
	case IdentityModeToken:
		if len(c.IdentitySecret) < 32 {
			errs = append(errs, errors.New("IDENTITY_SECRET must be at least 32 bytes in token mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported IDENTITY_MODE %q", c.IdentityMode))
	}
	if c.RoomRateLimit <= 0 {
		errs = append(errs, errors.New("ROOM_RATE_LIMIT must be positive"))
	}
	if c.RoomRateWindow <= 0 {
		errs = append(errs, errors.New("ROOM_RATE_WINDOW must be positive"))
	}
	if c.IdleTimeout < time.Second {
		errs = append(errs, errors.New("WS_IDLE_TIMEOUT must be at least 1s"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
