package job

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound indicates the job document path does not exist.
	ErrNotFound = errors.New("job file not found")

	// ErrParse indicates the job document is not a well-formed YAML mapping.
	ErrParse = errors.New("parse job file")
)

// Load reads and parses the job document at path.
func Load(path string) (*Spec, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat job file: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	spec, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return spec, nil
}

// Parse decodes a job document. The top level must be a mapping.
func Parse(data []byte) (*Spec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}
	if top := root.Content[0]; top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping (line %d)", ErrParse, top.Line)
	}

	var spec Spec
	if err := root.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return &spec, nil
}
