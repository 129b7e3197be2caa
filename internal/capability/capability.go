package capability

import (
	"context"
	"errors"
	"fmt"

	"lichtblick/internal/llm"
	"lichtblick/internal/prompts"
)

// Names of the built-in capabilities.
const (
	VocabularyExtraction = "vocabulary_extraction"
	SentenceAnalysis     = "sentence_translation_and_analysis"
)

// Descriptor is what the dispatcher sees of a capability: never its prompt.
type Descriptor struct {
	Name        string
	Description string
}

// Capability is a named text transformation backed by the completion service.
type Capability struct {
	name         string
	description  string
	instructions string
	client       llm.Completer
}

// New builds a capability from a catalog entry.
func New(def prompts.Capability, client llm.Completer) (*Capability, error) {
	if def.Name == "" {
		return nil, errors.New("capability name is empty")
	}
	if client == nil {
		return nil, fmt.Errorf("capability %s: nil completion client", def.Name)
	}
	return &Capability{
		name:         def.Name,
		description:  def.Description,
		instructions: def.Instructions,
		client:       client,
	}, nil
}

// NewVocabularyExtractor returns the word -> translation list capability.
func NewVocabularyExtractor(client llm.Completer) (*Capability, error) {
	return fromDefault(VocabularyExtraction, client)
}

// NewSentenceAnalyzer returns the translation + word-by-word breakdown capability.
func NewSentenceAnalyzer(client llm.Completer) (*Capability, error) {
	return fromDefault(SentenceAnalysis, client)
}

func fromDefault(name string, client llm.Completer) (*Capability, error) {
	def, ok := prompts.Default().Lookup(name)
	if !ok {
		return nil, fmt.Errorf("capability %s missing from catalog", name)
	}
	return New(def, client)
}

func (c *Capability) Name() string { return c.name }

func (c *Capability) Descriptor() Descriptor {
	return Descriptor{Name: c.name, Description: c.description}
}

// Invoke runs the capability on text.
func (c *Capability) Invoke(ctx context.Context, text string) (string, error) {
	out, err := c.client.Complete(ctx, llm.Request{System: c.instructions, Input: text})
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	return out, nil
}
