package bootstrap

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/planfest/planfest/internal/adapters/redis"
	"github.com/planfest/planfest/internal/data"
	"github.com/planfest/planfest/internal/data/cryptoutil"
	"github.com/planfest/planfest/internal/service"
)

// AuthConfig contains configuration for the authorization services.
type AuthConfig struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient
	SessionTTL  time.Duration
	Encryptor   cryptoutil.Encryptor
	Logger      *slog.Logger
}

// Services bundles the wired service layer.
type Services struct {
	Auth        *service.AuthService
	Passphrases *service.PassphraseService
	Events      *service.EventService
}

// BuildServices wires the passphrase catalog, session store, and services.
// Returns nil if required dependencies are missing.
func BuildServices(cfg AuthConfig) *Services {
	if cfg.DB == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth services disabled: database not configured")
		}
		return nil
	}
	if cfg.RedisClient == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth services disabled: redis client not configured")
		}
		return nil
	}

	enc := cfg.Encryptor
	if enc == nil {
		enc = &cryptoutil.NoopEncryptor{}
	}

	catalog := data.NewPassphraseRepo(cfg.DB, enc)
	events := data.NewEventRepo(cfg.DB)
	sessions := redisadapter.NewSessionStore(cfg.RedisClient, cfg.SessionTTL)

	return &Services{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Sessions: sessions,
			Catalog:  catalog,
		}),
		Passphrases: service.NewPassphraseService(service.PassphraseServiceOptions{
			Catalog: catalog,
		}),
		Events: service.NewEventService(events),
	}
}
