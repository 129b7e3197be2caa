package chat

import (
	"errors"

	"lichtblick/internal/credential"
)

var (
	ErrMissingCredential = errors.New("api key missing")
	ErrInvalidCredential = errors.New("api key invalid")
	ErrEmptyInput        = errors.New("empty message")
)

// Fixed messages shown to the learner. No other failure text reaches the
// chat surface.
const (
	CredentialMessage = "🤖 API key is missing or invalid. Please check your API key."
	ApologyMessage    = "🤖 Sorry, something went wrong. Please try again."
	EmptyInputMessage = "⚠️ Please enter a message."
)

// UserMessage maps any turn error to the text the learner sees.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential), errors.Is(err, ErrInvalidCredential):
		return CredentialMessage
	case errors.Is(err, ErrEmptyInput):
		return EmptyInputMessage
	default:
		return ApologyMessage
	}
}

func checkCredential(key string) error {
	switch credential.Validate(key) {
	case nil:
		return nil
	case credential.ErrMissing:
		return ErrMissingCredential
	default:
		return ErrInvalidCredential
	}
}
