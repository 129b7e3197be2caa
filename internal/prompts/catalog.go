// Package prompts holds the role descriptions handed to the completion
// service. They live in an embedded YAML file so wording can change without
// touching the dispatch code.
package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Coordinator holds the prompts of the top-level assistant.
type Coordinator struct {
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
	Compose      string `yaml:"compose"`
}

// Capability is one leaf behaviour exposed to the dispatcher.
type Capability struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Instructions string `yaml:"instructions"`
}

type Catalog struct {
	Coordinator  Coordinator  `yaml:"coordinator"`
	Capabilities []Capability `yaml:"capabilities"`
}

// Parse decodes and validates a catalog document. Unknown keys are rejected.
func Parse(data []byte) (Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := cat.validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Default returns the embedded catalog. The file ships with the binary, so a
// broken catalog is a programming error.
func Default() Catalog {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded catalog: %v", err))
	}
	return cat
}

// Lookup returns the capability with the given name.
func (c Catalog) Lookup(name string) (Capability, bool) {
	for _, cp := range c.Capabilities {
		if cp.Name == name {
			return cp, true
		}
	}
	return Capability{}, false
}

func (c Catalog) validate() error {
	if strings.TrimSpace(c.Coordinator.Instructions) == "" || strings.TrimSpace(c.Coordinator.Compose) == "" {
		return errors.New("catalog: coordinator instructions and compose prompt are required")
	}
	seen := make(map[string]bool, len(c.Capabilities))
	for i, cp := range c.Capabilities {
		if cp.Name == "" {
			return fmt.Errorf("catalog: capability %d has no name", i)
		}
		if seen[cp.Name] {
			return fmt.Errorf("catalog: capability %s defined twice", cp.Name)
		}
		seen[cp.Name] = true
		if strings.TrimSpace(cp.Instructions) == "" {
			return fmt.Errorf("catalog: capability %s has no instructions", cp.Name)
		}
	}
	return nil
}
