package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lichtblick/internal/capability"
	"lichtblick/internal/llm"
)

// ModelDecider lets the completion service choose capabilities through tool
// calling, guided by the coordinator instructions.
type ModelDecider struct {
	client       llm.ToolCaller
	instructions string
	log          *slog.Logger
}

func NewModelDecider(client llm.ToolCaller, instructions string, log *slog.Logger) *ModelDecider {
	return &ModelDecider{client: client, instructions: instructions, log: log}
}

func (m *ModelDecider) Decide(ctx context.Context, text string, caps []capability.Descriptor) (Decision, error) {
	tools := make([]llm.ToolSpec, 0, len(caps))
	exposed := make(map[string]bool, len(caps))
	for _, c := range caps {
		tools = append(tools, llm.ToolSpec{Name: c.Name, Description: c.Description})
		exposed[c.Name] = true
	}

	resp, err := m.client.CallTools(ctx, llm.ToolRequest{System: m.instructions, Input: text, Tools: tools})
	if err != nil {
		return Decision{}, fmt.Errorf("decide: %w", err)
	}

	var d Decision
	seen := make(map[Invocation]bool)
	for _, call := range resp.Calls {
		if !exposed[call.Name] {
			m.log.Warn("model selected unknown capability", "name", call.Name)
			continue
		}
		input := strings.TrimSpace(call.Input)
		if input == "" {
			input = text
		}
		inv := Invocation{Name: call.Name, Input: input}
		if seen[inv] {
			continue
		}
		seen[inv] = true
		d.Invocations = append(d.Invocations, inv)
	}
	if len(d.Invocations) == 0 {
		d.Commentary = strings.TrimSpace(resp.Text)
	}
	return d, nil
}
