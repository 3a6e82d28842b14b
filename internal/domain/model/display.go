package model

import (
	"strings"
	"time"
)

// DisplayPassphrase is a Passphrase prepared for administrative listing:
// identical to the catalog record except that Secret is replaced by a
// masked value. Nothing outside the catalog ever holds the clear secret.
type DisplayPassphrase struct {
	ID                      int64
	EventID                 int64
	Secret                  *string
	Role                    string
	DerivableFromPassphrase *int64
	Comment                 string
	ValidFrom               *time.Time
	ValidUntil              *time.Time
}

const obfuscationMask = "****"

// ObfuscateSecret masks a secret for display: a fixed-width mask followed by
// the final character, so an administrator can tell passphrases apart
// without the listing revealing them ("user" becomes "****r").
func ObfuscateSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) == 0 {
		return obfuscationMask
	}
	var b strings.Builder
	b.WriteString(obfuscationMask)
	b.WriteRune(runes[len(runes)-1])
	return b.String()
}

// FormatForListing converts a catalog record into its administrative
// display form. A nil secret (pure link slot) stays nil, showing only
// provenance. Pure transform; the input record is not modified.
func FormatForListing(p Passphrase) DisplayPassphrase {
	d := DisplayPassphrase{
		ID:                      p.ID,
		EventID:                 p.EventID,
		Role:                    string(p.Role),
		DerivableFromPassphrase: p.DerivableFromPassphrase,
		Comment:                 p.Comment,
		ValidFrom:               p.ValidFrom,
		ValidUntil:              p.ValidUntil,
	}
	if p.Secret != nil {
		masked := ObfuscateSecret(*p.Secret)
		d.Secret = &masked
	}
	return d
}
