package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome records how a turn ended.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeCached   Outcome = "cached"
	OutcomeFailed   Outcome = "failed"
)

// Turn is one archived exchange: the learner's message and the reply shown.
type Turn struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	UserMessage  string    `json:"user_message"`
	Reply        string    `json:"reply"`
	Capabilities []string  `json:"capabilities"`
	Outcome      Outcome   `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists transcripts. SaveTurn is idempotent on Turn.ID so queue
// redeliveries do not duplicate rows.
type Store interface {
	SaveTurn(ctx context.Context, turn Turn) error
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error)
	Close() error
}
