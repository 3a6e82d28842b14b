package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - session.go: Session store configuration
//   - database.go: Database and session cache configuration
type AppConfig struct {
	// IsDev controls development mode behavior (noop secret encryption,
	// verbose logging). Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// SecretsEncryptionKey is the key used to encrypt passphrase secrets at
	// rest. Required for production, optional for development.
	SecretsEncryptionKey string `env:"SECRETS_ENCRYPTION_KEY"`

	// Session store configuration
	Session SessionConfig `envPrefix:"SESSION_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Session.Sanitize()
}
