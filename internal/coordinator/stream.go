package coordinator

import (
	"context"
	"strings"

	"lichtblick/internal/llm"
)

// Stream is a finite, non-restartable sequence of reply fragments. Read
// Fragments until it is closed, then check Err and Result.
type Stream struct {
	out     chan string
	results []InvocationResult
	reply   strings.Builder
	err     error
	skipLF  bool
}

func newStream(results []InvocationResult) *Stream {
	return &Stream{out: make(chan string), results: results}
}

// Fragments yields reply text in generation order.
func (s *Stream) Fragments() <-chan string { return s.out }

// Err is valid once Fragments is closed.
func (s *Stream) Err() error { return s.err }

// Result is valid once Fragments is closed.
func (s *Stream) Result() Result {
	return Result{Reply: s.reply.String(), Invocations: s.results}
}

func (s *Stream) run(ctx context.Context, chunks <-chan llm.Chunk) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case c, ok := <-chunks:
			if !ok {
				if err := ctx.Err(); err != nil {
					s.err = err
				}
				return
			}
			if c.Err != nil {
				s.err = c.Err
				return
			}
			text := s.normalize(c.Text)
			if text == "" {
				continue
			}
			s.reply.WriteString(text)
			select {
			case s.out <- text:
			case <-ctx.Done():
				s.err = ctx.Err()
				return
			}
		}
	}
}

// normalize rewrites CRLF and lone CR as LF. A CR ending one chunk pairs with
// an LF starting the next.
func (s *Stream) normalize(text string) string {
	if s.skipLF {
		text = strings.TrimPrefix(text, "\n")
	}
	s.skipLF = strings.HasSuffix(text, "\r")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
