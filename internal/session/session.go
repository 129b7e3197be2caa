package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lichtblick/internal/credential"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one history entry. It is never modified after being appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialStatus is the outcome of setting a session credential.
type CredentialStatus string

const (
	// CredentialReady is reported the first time a valid key is set.
	CredentialReady     CredentialStatus = "ready"
	CredentialUnchanged CredentialStatus = "unchanged"
	CredentialInvalid   CredentialStatus = "invalid"
	CredentialMissing   CredentialStatus = "missing"
)

// Session is the per-user chat context: ordered history plus the credential
// and whether it has been validated.
type Session struct {
	ID uuid.UUID

	mu         sync.Mutex
	messages   []Message
	apiKey     string
	validated  bool
	lastActive time.Time
}

func newSession(now time.Time) *Session {
	return &Session{ID: uuid.Must(uuid.NewV7()), lastActive: now}
}

// Append adds a message to the history and returns it.
func (s *Session) Append(role Role, content string) Message {
	m := Message{Role: role, Content: content, CreatedAt: time.Now().UTC()}
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m
}

// Messages returns a copy of the history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Clear empties the history and resets the validated flag. The stored key is
// kept, so the next SetCredential reports ready again.
func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.validated = false
	s.mu.Unlock()
}

// SetCredential stores key and reports how the surface should react. A valid
// key is "ready" only once per session (until Clear); an invalid one resets
// the flag.
func (s *Session) SetCredential(key string) CredentialStatus {
	key = strings.TrimSpace(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
	switch err := credential.Validate(key); err {
	case nil:
		if s.validated {
			return CredentialUnchanged
		}
		s.validated = true
		return CredentialReady
	case credential.ErrMissing:
		return CredentialMissing
	default:
		s.validated = false
		return CredentialInvalid
	}
}

// Credential returns the last key set on the session.
func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// Validated reports whether a valid key was accepted since the last Clear.
func (s *Session) Validated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validated
}
