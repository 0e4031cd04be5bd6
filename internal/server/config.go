// Package server provides configuration helpers that define runtime
// defaults, sanitation, and environment overrides for the relaycat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration settings.
type Config struct {
	// Host and Port bind the TCP chat listener.
	Host string
	Port int
	// WSAddr binds the optional WebSocket gateway; empty disables it.
	WSAddr string
	// AllowedOrigins controls which HTTP origins may upgrade to WebSocket.
	// "*" allows any origin.
	AllowedOrigins []string
	// WriteTimeout is the per-send deadline applied to session transports.
	WriteTimeout time.Duration
	// ShutdownTimeout bounds how long graceful shutdown waits for sessions.
	ShutdownTimeout time.Duration
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            2006,
		WSAddr:          "",
		AllowedOrigins:  []string{"http://localhost:8080"},
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewConfigFromEnv creates a Config from environment variables, falling
// back to defaults for anything unset or unparsable.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()

	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parseIntValue(port, cfg.Port)
	}

	if addr := os.Getenv("CHAT_WS_ADDR"); addr != "" {
		cfg.WSAddr = addr
	}

	if origins := os.Getenv("CHAT_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if timeout := os.Getenv("CHAT_WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseSeconds(timeout, cfg.WriteTimeout)
	}

	return cfg
}

// Sanitize replaces out-of-range values with defaults.
func (c *Config) Sanitize() {
	defaults := NewConfig()

	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = defaults.Port
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
