package llm

import (
	"context"
	"strings"
)

// Request is a single completion request: a role description plus input text.
type Request struct {
	System string
	Input  string
}

// Chunk is one incremental fragment of a streamed completion. A chunk with a
// non-nil Err is the last one sent on its channel.
type Chunk struct {
	Text string
	Err  error
}

// Completer is the text-completion boundary used by capabilities and the
// coordinator's composition step.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Stream sends fragments in generation order and closes the channel on
	// end of stream, on error, or when ctx is done.
	Stream(ctx context.Context, req Request) <-chan Chunk
}

// ToolSpec describes a named tool the model may call with a single text input.
type ToolSpec struct {
	Name        string
	Description string
}

// ToolRequest asks the model which tools to call for the given input.
type ToolRequest struct {
	System string
	Input  string
	Tools  []ToolSpec
}

// ToolCall is a tool selected by the model together with the text it wants
// the tool to process.
type ToolCall struct {
	ID    string
	Name  string
	Input string
}

// ToolResponse carries the model's tool calls and any plain text it produced.
type ToolResponse struct {
	Calls []ToolCall
	Text  string
}

// ToolCaller lets the model pick tools for an input.
type ToolCaller interface {
	CallTools(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	Completer
	ToolCaller
}

// Factory builds a Client bound to a user-supplied credential.
type Factory func(apiKey string) (Client, error)

// Collect drains a stream into a single string. It returns the text gathered
// so far together with the first error seen.
func Collect(chunks <-chan Chunk) (string, error) {
	var b strings.Builder
	for c := range chunks {
		if c.Err != nil {
			return b.String(), c.Err
		}
		b.WriteString(c.Text)
	}
	return b.String(), nil
}

// send delivers c unless ctx is done first.
func send(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
