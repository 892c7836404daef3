package policysource

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"veritas-hq/bastion/pkg/config"
	"veritas-hq/bastion/pkg/guardrail"
)

// PolicySet is a full pair of guardrail policy sets produced by a
// source: the defaults with the source's overrides applied.
type PolicySet struct {
	Input  []guardrail.Policy
	Output []guardrail.Policy
}

// overridesDoc is the on-disk shape of a policy override file.
type overridesDoc struct {
	InputPolicies  []config.PolicyOverride `yaml:"input_policies"`
	OutputPolicies []config.PolicyOverride `yaml:"output_policies"`
}

// FileSource loads policy overrides from a local YAML file.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and parses the override file and applies it over the
// default policy sets.
func (s *FileSource) Load() (*PolicySet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return parseOverrides(data)
}

func parseOverrides(data []byte) (*PolicySet, error) {
	var doc overridesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy overrides: %w", err)
	}
	return &PolicySet{
		Input:  guardrail.ApplyOverrides(guardrail.DefaultInputPolicies(), doc.InputPolicies),
		Output: guardrail.ApplyOverrides(guardrail.DefaultOutputPolicies(), doc.OutputPolicies),
	}, nil
}
