package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"kpijoin/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Export   ExportConfig
	Database DatabaseConfig
	Ops      OpsConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// UploadConfig bounds what a single upload request may carry
type UploadConfig struct {
	MaxSizeMB   int
	PreviewRows int
}

// SessionConfig controls the per-user workspace lifecycle
type SessionConfig struct {
	CookieName    string
	TTL           time.Duration
	SweepInterval time.Duration
}

// ExportConfig holds spreadsheet export settings
type ExportConfig struct {
	FileName string
}

// DatabaseConfig holds the optional run ledger connection. An empty URL disables the ledger.
type DatabaseConfig struct {
	URL string
}

// OpsConfig holds settings for the operational side server (health, pprof, run ledger)
type OpsConfig struct {
	Host    string // loopback unless OPS_HOST says otherwise
	Port    string
	Enabled bool
}

// Addr is the listen address of the ops server
func (o OpsConfig) Addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// Enabled reports whether a database connection was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// MaxUploadBytes returns the request body limit in bytes
func (u UploadConfig) MaxUploadBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Upload:   *loadUploadConfig(),
		Session:  *loadSessionConfig(),
		Export:   *loadExportConfig(),
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Ops:      *loadOpsConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", GinMode: "debug"},
		Upload:  UploadConfig{MaxSizeMB: 32, PreviewRows: 10},
		Session: SessionConfig{CookieName: "kpi_session", TTL: 2 * time.Hour, SweepInterval: 5 * time.Minute},
		Export:  ExportConfig{FileName: "kpi_analysis.xlsx"},
		Ops:     OpsConfig{Host: "127.0.0.1", Port: "6060", Enabled: true},
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadUploadConfig() *UploadConfig {
	return &UploadConfig{
		MaxSizeMB:   getEnvIntOrDefault("UPLOAD_MAX_MB", 32),
		PreviewRows: getEnvIntOrDefault("PREVIEW_ROWS", 10),
	}
}

func loadSessionConfig() *SessionConfig {
	return &SessionConfig{
		CookieName:    getEnvOrDefault("SESSION_COOKIE", "kpi_session"),
		TTL:           getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
		SweepInterval: getEnvDurationOrDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute),
	}
}

func loadExportConfig() *ExportConfig {
	return &ExportConfig{
		FileName: getEnvOrDefault("EXPORT_FILENAME", "kpi_analysis.xlsx"),
	}
}

func loadOpsConfig() *OpsConfig {
	return &OpsConfig{
		Host:    getEnvOrDefault("OPS_HOST", "127.0.0.1"),
		Port:    getEnvOrDefault("OPS_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Upload.MaxSizeMB <= 0 {
		return errors.ConfigInvalid("UPLOAD_MAX_MB must be positive")
	}
	if config.Upload.PreviewRows <= 0 {
		return errors.ConfigInvalid("PREVIEW_ROWS must be positive")
	}
	if config.Session.TTL <= 0 || config.Session.SweepInterval <= 0 {
		return errors.ConfigInvalid("session TTL and sweep interval must be positive")
	}
	if config.Session.CookieName == "" {
		return errors.ConfigInvalid("session cookie name is required")
	}
	if config.Ops.Enabled && config.Ops.Port == config.Server.Port {
		return errors.ConfigInvalid("OPS_PORT must differ from PORT")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
