// Package security enforces the sender allowlist. Only whitelisted phone
// numbers may talk to the assistant; everyone else is silently ignored.
package security

import (
	"strings"

	"go.uber.org/zap"
)

// Allowlist holds the set of permitted phone numbers in normalized form.
type Allowlist struct {
	numbers map[string]struct{}
	logger  *zap.Logger
}

// NewAllowlist builds an Allowlist from raw configured numbers, normalizing
// each entry.
func NewAllowlist(numbers []string, logger *zap.Logger) *Allowlist {
	set := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		if norm := NormalizeNumber(n); norm != "" {
			set[norm] = struct{}{}
		}
	}
	logger.Info("allowlist initialized", zap.Int("numbers", len(set)))
	return &Allowlist{numbers: set, logger: logger}
}

// IsAllowed reports whether a sender identifier is whitelisted. An empty
// allowlist denies everyone.
func (a *Allowlist) IsAllowed(sender string) bool {
	norm := NormalizeNumber(sender)
	_, ok := a.numbers[norm]
	if !ok {
		a.logger.Warn("access denied",
			zap.String("sender", sender), zap.String("normalized", norm))
	}
	return ok
}

// NormalizeNumber strips WhatsApp JID suffixes (@s.whatsapp.net, @g.us, @c.us)
// and every non-digit character, e.g. "5511999999999@s.whatsapp.net" becomes
// "5511999999999".
func NormalizeNumber(number string) string {
	if idx := strings.IndexByte(number, '@'); idx >= 0 {
		number = number[:idx]
	}
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
