// Package config loads and validates the institutional server's
// environment-variable configuration, spec §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ServerConfig holds every environment variable the institutional
// server reads at startup.
type ServerConfig struct {
	BrokerPassword         string
	DatabaseURL            string
	Port                   int
	BindAddr               string
	EnableMDNS             bool
	RequireAuth            bool
	EnableEncryption       bool
	SessionTimeoutSeconds  int
	HeartbeatTimeoutSeconds int
	MaxConcurrentJobs      int64
	MaxUploadSizeBytes     int64
	CORSOrigins            []string
}

// Defaults mirror original_source's server defaults where spec.md
// leaves a value unpinned.
const (
	defaultPort                    = 8080
	defaultBindAddr                = "0.0.0.0"
	defaultSessionTimeoutSeconds   = 3600
	defaultHeartbeatTimeoutSeconds = 300
	defaultMaxConcurrentJobs       = 4
	defaultMaxUploadSizeBytes      = 500 * 1024 * 1024
)

const minBrokerPasswordLength = 8

// Load reads ServerConfig from the process environment via getenv and
// validates it. getenv is injected so tests don't mutate real process
// environment state.
func Load(getenv func(string) string) (ServerConfig, error) {
	cfg := ServerConfig{
		BrokerPassword:          getenv("BROKER_PASSWORD"),
		DatabaseURL:             getenv("DATABASE_URL"),
		Port:                    defaultPort,
		BindAddr:                defaultBindAddr,
		SessionTimeoutSeconds:   defaultSessionTimeoutSeconds,
		HeartbeatTimeoutSeconds: defaultHeartbeatTimeoutSeconds,
		MaxConcurrentJobs:       defaultMaxConcurrentJobs,
		MaxUploadSizeBytes:      defaultMaxUploadSizeBytes,
	}

	var err error
	if cfg.Port, err = intOrDefault(getenv("DDALAB_PORT"), defaultPort); err != nil {
		return ServerConfig{}, fmt.Errorf("config: DDALAB_PORT: %w", err)
	}
	if v := getenv("DDALAB_BIND_ADDR"); v != "" {
		cfg.BindAddr = v
	}
	cfg.EnableMDNS = boolOrDefault(getenv("ENABLE_MDNS"), false)
	cfg.RequireAuth = boolOrDefault(getenv("REQUIRE_AUTH"), true)
	cfg.EnableEncryption = boolOrDefault(getenv("ENABLE_ENCRYPTION"), false)

	if cfg.SessionTimeoutSeconds, err = intOrDefault(getenv("SESSION_TIMEOUT_SECONDS"), defaultSessionTimeoutSeconds); err != nil {
		return ServerConfig{}, fmt.Errorf("config: SESSION_TIMEOUT_SECONDS: %w", err)
	}
	if cfg.HeartbeatTimeoutSeconds, err = intOrDefault(getenv("HEARTBEAT_TIMEOUT_SECONDS"), defaultHeartbeatTimeoutSeconds); err != nil {
		return ServerConfig{}, fmt.Errorf("config: HEARTBEAT_TIMEOUT_SECONDS: %w", err)
	}
	if cfg.MaxConcurrentJobs, err = int64OrDefault(getenv("MAX_CONCURRENT_JOBS"), defaultMaxConcurrentJobs); err != nil {
		return ServerConfig{}, fmt.Errorf("config: MAX_CONCURRENT_JOBS: %w", err)
	}
	if cfg.MaxUploadSizeBytes, err = int64OrDefault(getenv("MAX_UPLOAD_SIZE"), defaultMaxUploadSizeBytes); err != nil {
		return ServerConfig{}, fmt.Errorf("config: MAX_UPLOAD_SIZE: %w", err)
	}
	cfg.CORSOrigins = splitCSV(getenv("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Validate checks the required-field and format invariants of spec §6
// that parsing alone cannot express.
func (c ServerConfig) Validate() error {
	if c.BrokerPassword == "" {
		return fmt.Errorf("config: BROKER_PASSWORD is required")
	}
	if len(c.BrokerPassword) < minBrokerPasswordLength {
		return fmt.Errorf("config: BROKER_PASSWORD must be at least %d characters", minBrokerPasswordLength)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: DDALAB_PORT %d out of range", c.Port)
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("config: MAX_CONCURRENT_JOBS must be positive, got %d", c.MaxConcurrentJobs)
	}
	if c.MaxUploadSizeBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSizeBytes)
	}
	return nil
}

func intOrDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return v, nil
}

func int64OrDefault(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return v, nil
}

func boolOrDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFromEnv is a convenience wrapper over Load using os.Getenv.
func LoadFromEnv() (ServerConfig, error) {
	return Load(os.Getenv)
}
