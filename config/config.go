// Package config implements a centralized configuration management system following
// the 12-Factor App methodology and SOLID principles. It provides type-safe configuration
// loading from environment variables with proper error handling and graceful degradation.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config represents the root configuration structure following the Separation of Concerns principle.
// Each field corresponds to a specific functional domain, enabling clear boundaries and
// improved maintainability. The env tags enable automatic mapping from environment variables
// to Go structs, reducing boilerplate code and providing type safety.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Handlers HandlersConfig `envPrefix:"HANDLERS_"`
	Drain    DrainConfig    `envPrefix:"DRAIN_"`
	Provider ProviderConfig `envPrefix:"PROVIDER_"`
}

// ServerConfig encapsulates HTTP server configuration.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"` // Server bind address
	Port int    `env:"PORT" envDefault:"7600"`    // Server port number
}

// DatabaseConfig contains PostgreSQL connection parameters for the
// provider-descriptor and endpoint persistence store.
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"native_gateway"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
}

// HandlersConfig controls where per-endpoint handler projects are
// scaffolded and built, and how long a compile is allowed to run before
// the Handler Compiler gives up.
type HandlersConfig struct {
	Root         string        `env:"ROOT" envDefault:"./handlers"`                        // project tree root
	SDKModule    string        `env:"SDK_MODULE" envDefault:"github.com/aras-services/native-gateway/pkg/sdk"` // module path handler projects require
	BuildTimeout time.Duration `env:"BUILD_TIMEOUT" envDefault:"2m"`
}

// DrainConfig.DefaultDeadline is passed to the Request Dispatcher as its
// per-request handler timeout (0 disables it). It is not applied to drains:
// an admin swap without its own drain deadline, and every unload, wait for
// in-flight requests with no deadline.
type DrainConfig struct {
	DefaultDeadline time.Duration `env:"DEFAULT_DEADLINE" envDefault:"30s"`
}

// ProviderConfig sets provider actor defaults.
type ProviderConfig struct {
	DefaultInboxDepth int `env:"DEFAULT_INBOX_DEPTH" envDefault:"32"`
}

// Load implements the Configuration Management Pattern with support for environment
// variables only, following the 12-Factor App methodology.
func Load() (*Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("error parsing environment variables: %w", err)
	}
	return &config, nil
}

// GetDSN constructs the PostgreSQL Data Source Name from DatabaseConfig.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetServerAddr constructs the server bind address string.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
