package credential

import (
	"errors"
	"strings"
)

// Prefix every accepted API key starts with.
const Prefix = "sk-"

var (
	ErrMissing   = errors.New("credential missing")
	ErrMalformed = errors.New("credential malformed")
)

// Validate checks the key format only; it never contacts the provider.
func Validate(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return ErrMissing
	case !strings.HasPrefix(key, Prefix) || len(key) == len(Prefix):
		return ErrMalformed
	default:
		return nil
	}
}

// Redact keeps the prefix and the last four characters for log lines.
func Redact(key string) string {
	if len(key) <= len(Prefix)+4 {
		return Prefix + "****"
	}
	return key[:len(Prefix)] + "****" + key[len(key)-4:]
}
