package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	assert.Equal(t, "Lichtblick", cat.Coordinator.Name)
	assert.Contains(t, cat.Coordinator.Compose, "follow-up question")
	require.Len(t, cat.Capabilities, 2)

	vocab, ok := cat.Lookup("vocabulary_extraction")
	require.True(t, ok)
	assert.Contains(t, vocab.Instructions, "Hund -> dog")

	analysis, ok := cat.Lookup("sentence_translation_and_analysis")
	require.True(t, ok)
	assert.Contains(t, analysis.Instructions, "original word order")

	_, ok = cat.Lookup("grammar_engine")
	assert.False(t, ok)
}

func TestParseValidCatalog(t *testing.T) {
	cat, err := Parse([]byte(`
coordinator: {name: Test, instructions: route, compose: merge}
capabilities:
  - {name: x, description: does x, instructions: one}
`))
	require.NoError(t, err)
	assert.Equal(t, "merge", cat.Coordinator.Compose)
	assert.Equal(t, []Capability{{Name: "x", Description: "does x", Instructions: "one"}}, cat.Capabilities)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "coordinator: [unclosed"},
		{"missing coordinator", "capabilities: []"},
		{"duplicate names", `
coordinator: {instructions: a, compose: b}
capabilities:
  - {name: x, instructions: one}
  - {name: x, instructions: two}
`},
		{"unnamed capability", `
coordinator: {instructions: a, compose: b}
capabilities:
  - {instructions: one}
`},
		{"empty instructions", `
coordinator: {instructions: a, compose: b}
capabilities:
  - {name: x}
`},
		{"unknown capability key", `
coordinator: {instructions: a, compose: b}
capabilities:
  - {name: x, title: X, instructions: one}
`},
		{"empty document", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
