package chat

import (
	"context"

	"github.com/google/uuid"

	"lichtblick/internal/coordinator"
)

type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeCached    Outcome = "cached"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Result is what a finished turn left in the history.
type Result struct {
	Reply       string
	Invocations []coordinator.InvocationResult
	Outcome     Outcome
	// Err is the upstream failure behind an apology reply.
	Err error
}

// Capabilities lists the invoked capability names in order.
func (r Result) Capabilities() []string {
	names := make([]string, 0, len(r.Invocations))
	for _, inv := range r.Invocations {
		names = append(names, inv.Name)
	}
	return names
}

// Turn is an accepted message whose reply is being produced. Fragments must
// be read until closed (or Wait called) for the turn to finish.
type Turn struct {
	ID uuid.UUID

	out    chan string
	result Result
}

func newTurn() *Turn {
	return &Turn{ID: uuid.Must(uuid.NewV7()), out: make(chan string)}
}

// Fragments yields the reply text as it is produced.
func (t *Turn) Fragments() <-chan string { return t.out }

// Wait drains any unread fragments and returns the result.
func (t *Turn) Wait() Result {
	for range t.out {
	}
	return t.result
}

func (t *Turn) emit(ctx context.Context, text string) bool {
	select {
	case t.out <- text:
		return true
	case <-ctx.Done():
		return false
	}
}
