package workflow

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxDefinitionSize caps workflow definition files at 1MB.
const maxDefinitionSize = 1024 * 1024

// Parse decodes and validates a workflow definition document.
func Parse(data []byte) (*Definition, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing workflow definition: %w", err)
	}

	var def Definition
	if err := k.Unmarshal("", &def); err != nil {
		return nil, fmt.Errorf("decoding workflow definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads, parses, and validates one definition file.
//
// Used by the validator CLI and by the store for project overrides.
func LoadFile(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	if info.Size() > maxDefinitionSize {
		return nil, fmt.Errorf("workflow file %s too large: %d bytes (max %d)", path, info.Size(), maxDefinitionSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
