package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/carrierd/carrierd/internal/config"
	"github.com/carrierd/carrierd/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// CARRIERD_DATA_DIR env var, or ~/.carrierd as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("CARRIERD_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".carrierd")
}

// setDefaults registers every config key with viper so environment
// overrides are picked up by Unmarshal even when no config file sets them.
func setDefaults() {
	d := config.Default()
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	viper.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	viper.SetDefault("server.base_url", d.Server.BaseURL)
	viper.SetDefault("server.public", d.Server.Public)
	viper.SetDefault("database.driver", d.Database.Driver)
	viper.SetDefault("database.dsn", d.Database.DSN)
	viper.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	viper.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	viper.SetDefault("auth.jwt_expiry", d.Auth.JWTExpiry)
	viper.SetDefault("docs.base_url", d.Docs.BaseURL)
	viper.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	viper.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	viper.SetDefault("cache.ttl", d.Cache.TTL)
	viper.SetDefault("rate_limit.requests_per_minute", d.RateLimit.RequestsPerMinute)
	viper.SetDefault("rate_limit.public_per_minute", d.RateLimit.PublicPerMinute)
	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)
	viper.SetDefault("mcp.api_key", d.MCP.APIKey)
	viper.SetDefault("mcp.transport", d.MCP.Transport)
	viper.SetDefault("mcp.port", d.MCP.Port)
}

// loadConfig merges defaults, the config file and CARRIERD_* variables.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from logging.level and logging.format.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openStore opens the configured store. The embedded SQLite database lives
// in the data directory, which is created on demand.
func openStore(cfg *config.Config) (*store.Store, error) {
	dir := resolveDataDir()
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Database.Driver, cfg.StoreDSN(dir))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.MaxOpenConns > 0 {
		st.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	return st, nil
}

// openConfiguredStore is loadConfig followed by openStore, for the
// management subcommands.
func openConfiguredStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
