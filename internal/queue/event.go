package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnEvent is the payload of a transcript task.
type TurnEvent struct {
	TurnID       uuid.UUID `json:"turn_id"`
	SessionID    uuid.UUID `json:"session_id"`
	UserMessage  string    `json:"user_message"`
	Reply        string    `json:"reply"`
	Capabilities []string  `json:"capabilities"`
	Outcome      string    `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTranscriptTask wraps a turn event. The task ID equals the turn ID so a
// redelivered task is recognizable downstream.
func NewTranscriptTask(ev TurnEvent) (Task, error) {
	if ev.TurnID == uuid.Nil {
		ev.TurnID = uuid.New()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return Task{}, fmt.Errorf("encode turn event: %w", err)
	}
	return Task{ID: ev.TurnID, Type: TaskTypeTranscript, Payload: body, MaxAttempts: 5}, nil
}

// DecodeTurnEvent reads the payload of a transcript task.
func DecodeTurnEvent(task Task) (TurnEvent, error) {
	if task.Type != TaskTypeTranscript {
		return TurnEvent{}, fmt.Errorf("unexpected task type %q", task.Type)
	}
	var ev TurnEvent
	if err := json.Unmarshal(task.Payload, &ev); err != nil {
		return TurnEvent{}, fmt.Errorf("decode turn event: %w", err)
	}
	if ev.SessionID == uuid.Nil {
		return TurnEvent{}, fmt.Errorf("turn event %s has no session", ev.TurnID)
	}
	return ev, nil
}
