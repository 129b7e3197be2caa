package capability

import (
	"fmt"

	"lichtblick/internal/llm"
	"lichtblick/internal/prompts"
)

// Set is an ordered collection of capabilities with unique names.
type Set struct {
	ordered []*Capability
	byName  map[string]*Capability
}

// NewSet rejects nil entries and duplicate names.
func NewSet(caps ...*Capability) (*Set, error) {
	s := &Set{byName: make(map[string]*Capability, len(caps))}
	for _, c := range caps {
		if c == nil {
			return nil, fmt.Errorf("capability is nil")
		}
		if _, exists := s.byName[c.name]; exists {
			return nil, fmt.Errorf("capability %s already registered", c.name)
		}
		s.byName[c.name] = c
		s.ordered = append(s.ordered, c)
	}
	return s, nil
}

// FromCatalog builds one capability per catalog entry, all sharing client.
func FromCatalog(cat prompts.Catalog, client llm.Completer) (*Set, error) {
	caps := make([]*Capability, 0, len(cat.Capabilities))
	for _, def := range cat.Capabilities {
		c, err := New(def, client)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return NewSet(caps...)
}

// Get fetches a capability by name.
func (s *Set) Get(name string) (*Capability, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Descriptors lists the exposed capabilities in registration order.
func (s *Set) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(s.ordered))
	for _, c := range s.ordered {
		out = append(out, c.Descriptor())
	}
	return out
}

func (s *Set) Len() int { return len(s.ordered) }
