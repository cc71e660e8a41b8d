// pkg/config/sources.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EntitySource describes where one entity's exported sheet lives.
type EntitySource struct {
	File string `yaml:"file"`
}

// SourceLayout maps entity names to their exported sheets.
//
// Example layout file:
//
//	entities:
//	  customer:
//	    file: data/customers.csv
//	  order:
//	    file: data/orders.csv
type SourceLayout struct {
	Entities map[string]EntitySource `yaml:"entities"`
}

// LoadSourceLayout reads and validates a YAML source layout file.
func LoadSourceLayout(path string) (*SourceLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source layout %s: %w", path, err)
	}

	var layout SourceLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse source layout %s: %w", path, err)
	}

	if len(layout.Entities) == 0 {
		return nil, fmt.Errorf("source layout %s defines no entities", path)
	}
	for name, src := range layout.Entities {
		if src.File == "" {
			return nil, fmt.Errorf("source layout %s: entity %s has no file", path, name)
		}
	}

	return &layout, nil
}

// FileFor returns the sheet file configured for an entity name.
func (l *SourceLayout) FileFor(entity string) (string, error) {
	src, ok := l.Entities[entity]
	if !ok {
		return "", fmt.Errorf("no source configured for entity %s", entity)
	}
	return src.File, nil
}
