package config

import "time"

// defaultSessionTTL keeps idle sessions alive for 30 days, matching the
// long-lived "remember this browser" expectation of event participants.
const defaultSessionTTL = 30 * 24 * time.Hour

// SessionConfig contains configuration for the Redis-backed session store.
type SessionConfig struct {
	// TTL is how long a session survives without activity before the store
	// expires it.
	TTL time.Duration `env:"TTL" envDefault:"720h"`
}

// Sanitize applies guardrails to session configuration values.
func (c *SessionConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = defaultSessionTTL
	}
}
