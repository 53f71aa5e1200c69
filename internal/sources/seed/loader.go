package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of a seed catalogue file
type Loader struct {
	filePath string
}

// NewLoader creates a new seed loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the catalogue file. Unknown keys are rejected so a
// typo in a field name does not silently drop data.
func (l *Loader) Load() (Catalogue, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Catalogue{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalogue from YAML or JSON bytes.
func Parse(data []byte) (Catalogue, error) {
	var cat Catalogue
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
		return Catalogue{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return cat, nil
}
