package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"lichtblick/internal/capability"
	"lichtblick/internal/llm"
)

// InvocationResult is the output of one capability run during a turn.
type InvocationResult struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Result is the outcome of a completed turn.
type Result struct {
	Reply       string             `json:"reply"`
	Invocations []InvocationResult `json:"invocations"`
}

// Coordinator dispatches a message to capabilities and merges their output
// into one reply. It keeps no state between calls.
type Coordinator struct {
	caps     *capability.Set
	decider  Decider
	composer llm.Completer
	compose  string
	log      *slog.Logger
}

// New wires a coordinator. compose is the role description of the merge step.
func New(caps *capability.Set, decider Decider, composer llm.Completer, compose string, log *slog.Logger) (*Coordinator, error) {
	if caps == nil || decider == nil || composer == nil {
		return nil, errors.New("coordinator: capabilities, decider and composer are required")
	}
	return &Coordinator{caps: caps, decider: decider, composer: composer, compose: compose, log: log}, nil
}

// Run produces the full reply. It drains Stream, so the reply always equals
// the concatenation of the fragments a streamed call would yield.
func (c *Coordinator) Run(ctx context.Context, text string) (Result, error) {
	s, err := c.Stream(ctx, text)
	if err != nil {
		return Result{}, err
	}
	for range s.Fragments() {
	}
	if err := s.Err(); err != nil {
		return Result{}, err
	}
	return s.Result(), nil
}

// Stream decides and invokes capabilities before returning; the merged reply
// is then produced incrementally on the returned stream.
func (c *Coordinator) Stream(ctx context.Context, text string) (*Stream, error) {
	decision, err := c.decider.Decide(ctx, text, c.caps.Descriptors())
	if err != nil {
		return nil, err
	}
	c.log.Debug("dispatch decision", "capabilities", decision.Names())

	results, err := c.invoke(ctx, decision.Invocations)
	if err != nil {
		return nil, err
	}

	s := newStream(results)
	if len(results) == 0 && decision.Commentary != "" {
		go s.run(ctx, llm.StreamOf(decision.Commentary))
		return s, nil
	}
	req := llm.Request{System: c.compose, Input: composeInput(text, results)}
	go s.run(ctx, c.composer.Stream(ctx, req))
	return s, nil
}

// invoke runs the selected capabilities concurrently. Results keep decision
// order; any failure fails the whole turn.
func (c *Coordinator) invoke(ctx context.Context, invs []Invocation) ([]InvocationResult, error) {
	caps := make([]*capability.Capability, len(invs))
	for i, inv := range invs {
		capab, ok := c.caps.Get(inv.Name)
		if !ok {
			return nil, fmt.Errorf("capability %s not found", inv.Name)
		}
		caps[i] = capab
	}

	results := make([]InvocationResult, len(invs))
	g, gctx := errgroup.WithContext(ctx)
	for i, inv := range invs {
		g.Go(func() error {
			out, err := caps[i].Invoke(gctx, inv.Input)
			if err != nil {
				return err
			}
			results[i] = InvocationResult{Name: inv.Name, Input: inv.Input, Output: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func composeInput(text string, results []InvocationResult) string {
	var b strings.Builder
	b.WriteString("Learner message:\n")
	b.WriteString(text)
	if len(results) == 0 {
		b.WriteString("\n\nNo tool was run for this message.")
		return b.String()
	}
	for _, r := range results {
		fmt.Fprintf(&b, "\n\nOutput of %s for %q:\n%s", r.Name, r.Input, r.Output)
	}
	return b.String()
}
