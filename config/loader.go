package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bundle is the fully resolved configuration the engine runs with.
type Bundle struct {
	Tables      map[TableKind]TableConfig
	Design      DesignConfig
	QuerySheets []QuerySheetConfig
}

// DefaultBundle returns the built-in configuration.
func DefaultBundle() *Bundle {
	return &Bundle{
		Tables: DefaultTables(),
		Design: DefaultDesign(),
	}
}

// LoadBundle loads a YAML override file on top of the defaults. Table entries
// in the file replace the default entry of the same kind wholesale; partial
// records are rejected by the validator rather than merged.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	b := DefaultBundle()
	for _, t := range f.Tables {
		b.Tables[t.Kind] = t
	}
	if f.Design != nil {
		b.Design = *f.Design
	}
	b.QuerySheets = f.QuerySheets

	if err := Validate(b); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return b, nil
}
