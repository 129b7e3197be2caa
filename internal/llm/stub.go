package llm

import (
	"context"
	"strings"
)

// StubClient is a deterministic offline provider (LLM_PROVIDER=stub). It
// echoes the input back and never selects tools.
type StubClient struct{}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (StubClient) Complete(_ context.Context, req Request) (string, error) {
	return req.Input, nil
}

func (StubClient) Stream(_ context.Context, req Request) <-chan Chunk {
	return StreamOf(strings.SplitAfter(req.Input, " ")...)
}

func (StubClient) CallTools(context.Context, ToolRequest) (ToolResponse, error) {
	return ToolResponse{}, nil
}

// StreamOf returns a closed, buffered stream yielding parts in order.
func StreamOf(parts ...string) <-chan Chunk {
	out := make(chan Chunk, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out <- Chunk{Text: p}
	}
	close(out)
	return out
}

// FailingStream yields parts and then err.
func FailingStream(err error, parts ...string) <-chan Chunk {
	out := make(chan Chunk, len(parts)+1)
	for _, p := range parts {
		out <- Chunk{Text: p}
	}
	out <- Chunk{Err: err}
	close(out)
	return out
}
