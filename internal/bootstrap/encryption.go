package bootstrap

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/planfest/planfest/internal/data/cryptoutil"
)

// CreateEncryptor builds the encryptor that protects passphrase secrets at
// rest. A 64-char hex key is used as the raw 32-byte AES key; any other
// non-empty key is hashed to key length. With an empty or unusable key the
// catalog falls back to noop encryption so development setups work without
// configuration; production deployments must set SECRETS_ENCRYPTION_KEY.
//
//nolint:ireturn // Returning interface is intentional for encryptor abstraction
func CreateEncryptor(key string, logger *slog.Logger) cryptoutil.Encryptor {
	if key == "" {
		if logger != nil {
			logger.Warn("SECRETS_ENCRYPTION_KEY is empty, storing passphrase secrets with noop encryption")
		}
		return &cryptoutil.NoopEncryptor{}
	}

	enc, err := cryptoutil.NewAESGCMEncryptor(deriveSecretsKey(key))
	if err != nil {
		if logger != nil {
			logger.Warn("failed to create secrets encryptor, falling back to noop", "error", err)
		}
		return &cryptoutil.NoopEncryptor{}
	}
	return enc
}

// deriveSecretsKey turns the configured key string into AES-256 key material.
func deriveSecretsKey(key string) []byte {
	if decoded, err := hex.DecodeString(key); err == nil && len(decoded) == 32 {
		return decoded
	}
	hash := sha256.Sum256([]byte(key))
	return hash[:]
}
