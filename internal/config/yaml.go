package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Drivers lists the accepted database.driver values.
var Drivers = []string{"sqlite", "postgres", "mysql", "mssql"}

// Config represents the top-level carrierd configuration file. The
// mapstructure tags let viper merge environment overrides into the same
// struct.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Docs      DocsConfig      `yaml:"docs" mapstructure:"docs"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	MCP       MCPConfig       `yaml:"mcp" mapstructure:"mcp"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	Public          bool          `yaml:"public" mapstructure:"public"`
}

// DatabaseConfig selects the store backend. An empty DSN with the sqlite
// driver places carrierd.db in the data directory.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DSN          string `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// AuthConfig controls admin session tokens.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry" mapstructure:"jwt_expiry"`
}

// DocsConfig points error and success references at the published docs.
type DocsConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CacheConfig controls the public view cache. An empty RedisAddr keeps the
// cache in process.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RateLimitConfig controls per-key request limits. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	PublicPerMinute   int `yaml:"public_per_minute" mapstructure:"public_per_minute"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MCPConfig controls the MCP (Model Context Protocol) server. Tools act as
// the API key given here.
type MCPConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Transport string `yaml:"transport" mapstructure:"transport"`
	Port      int    `yaml:"port" mapstructure:"port"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 30 * time.Second,
			Public:          true,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			MaxOpenConns: 10,
		},
		Auth: AuthConfig{
			JWTExpiry: 24 * time.Hour,
		},
		Docs: DocsConfig{
			BaseURL: "https://docs.carrierd.dev",
		},
		Cache: CacheConfig{
			TTL: time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			PublicPerMinute:   300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      3001,
		},
	}
}

// Load reads and parses a YAML configuration file on top of the defaults.
// Environment variables referenced as ${VAR_NAME} in the file are expanded
// before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	known := false
	for _, d := range Drivers {
		if c.Database.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w %q (want one of %v)", ErrUnknownDriver, c.Database.Driver, Drivers)
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for %s", ErrInvalidValue, c.Database.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalidValue, c.Server.Port)
	}
	if c.Database.MaxOpenConns < 0 || c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.PublicPerMinute < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidValue)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (want text or json)", ErrInvalidValue, c.Logging.Format)
	}
	return nil
}

// StoreDSN returns the DSN to open. The embedded SQLite store defaults to
// carrierd.db under dataDir.
func (c *Config) StoreDSN(dataDir string) string {
	if c.Database.DSN != "" || c.Database.Driver != "sqlite" {
		return c.Database.DSN
	}
	return filepath.Join(dataDir, "carrierd.db") + "?_journal_mode=WAL&_busy_timeout=5000"
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
