// Package config provides configuration parsing and validation for the alertd service.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all configuration parameters for the alertd service.
type Config struct {
	HTTPPort    string
	PostgresDSN string

	// RedisAddr is optional. When empty, the rate limiter uses its in-process
	// store and the metrics collector is disabled.
	RedisAddr string

	// KafkaBrokers is optional. When empty, lifecycle events are not published.
	KafkaBrokers string
	EventsTopic  string

	JWTSecret string

	RateLimit       int
	RateLimitWindow time.Duration

	EscalationInterval  time.Duration
	EscalationThreshold time.Duration

	SendTimeout     time.Duration
	DispatchWorkers int

	EmailFrom     string
	SMSGatewayURL string
	SMSFrom       string
}

// Validate checks that all required configuration fields are set and have valid values.
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret cannot be empty (set ALERTD_JWT_SECRET)")
	}
	if c.KafkaBrokers != "" && c.EventsTopic == "" {
		return fmt.Errorf("events-topic cannot be empty when kafka-brokers is set")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be positive, got %d", c.RateLimit)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate-limit-window must be positive, got %s", c.RateLimitWindow)
	}
	if c.EscalationInterval <= 0 {
		return fmt.Errorf("escalation-interval must be positive, got %s", c.EscalationInterval)
	}
	if c.EscalationThreshold <= 0 {
		return fmt.Errorf("escalation-threshold must be positive, got %s", c.EscalationThreshold)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send-timeout must be positive, got %s", c.SendTimeout)
	}
	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("dispatch-workers must be positive, got %d", c.DispatchWorkers)
	}
	if c.EmailFrom == "" {
		return fmt.Errorf("email-from cannot be empty")
	}
	return nil
}

// GetEnvOrDefault returns the environment variable value or a default if not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MaskDSN masks sensitive information in a DSN for logging.
func MaskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:20] + "***" + dsn[len(dsn)-20:]
	}
	return "***"
}
