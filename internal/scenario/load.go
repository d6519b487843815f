package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk shape of a scenario table.
type tableFile struct {
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// LoadTable reads a scenario table from a YAML (.yaml, .yml) or CUE (.cue)
// file. Scenarios are numbered in file order.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario table: %w", err)
	}

	var f tableFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &f)
	case ".cue":
		err = decodeCUE(path, data, &f)
	default:
		return nil, fmt.Errorf("unsupported scenario table format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	table := numbered(f.Scenarios)
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario table: %w", err)
	}
	return table, nil
}

func decodeYAML(data []byte, f *tableFile) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "dcaches:"
	if err := decoder.Decode(f); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, f *tableFile) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("scenario table is not concrete: %w", err)
	}
	if err := v.Decode(f); err != nil {
		return fmt.Errorf("failed to decode CUE: %w", err)
	}
	return nil
}
