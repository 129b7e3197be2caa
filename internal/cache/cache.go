package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores finished replies so a repeated message is answered without
// another round of completion calls.
type Cache interface {
	// GetReply retrieves a cached reply by key
	// Returns nil if not found
	GetReply(ctx context.Context, key string) (*Reply, error)

	// SetReply stores a reply with TTL
	SetReply(ctx context.Context, key string, reply *Reply, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Reply represents a cached assistant reply.
type Reply struct {
	Text        string       `json:"text"`
	Invocations []Invocation `json:"invocations"`
}

// Invocation is a capability output that contributed to the reply.
type Invocation struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// GenerateCacheKey derives a key from the model and the message, ignoring
// case and surrounding or repeated whitespace.
func GenerateCacheKey(model, text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(model + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}
