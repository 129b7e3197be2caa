package coordinator

import (
	"context"

	"lichtblick/internal/capability"
)

// Invocation asks for one capability to run on Input.
type Invocation struct {
	Name  string
	Input string
}

// Decision is the per-turn dispatch result. Commentary, when set and no
// capability is invoked, is returned to the user as-is.
type Decision struct {
	Invocations []Invocation
	Commentary  string
}

// Names lists the selected capability names in order.
func (d Decision) Names() []string {
	names := make([]string, 0, len(d.Invocations))
	for _, inv := range d.Invocations {
		names = append(names, inv.Name)
	}
	return names
}

// Decider selects the capabilities to run for a user message. Implementations
// see only descriptors, never capability prompts.
type Decider interface {
	Decide(ctx context.Context, text string, caps []capability.Descriptor) (Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, text string, caps []capability.Descriptor) (Decision, error)

func (f DeciderFunc) Decide(ctx context.Context, text string, caps []capability.Descriptor) (Decision, error) {
	return f(ctx, text, caps)
}
