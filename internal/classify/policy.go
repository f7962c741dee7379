package classify

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Weights carries the scoring constants. They are policy, not law: the
// values have no documented derivation and are expected to be tuned.
type Weights struct {
	Keyword      float64 `yaml:"keyword"`
	Pattern      float64 `yaml:"pattern"`
	FilenameHint float64 `yaml:"filename_hint"`
	CADFileType  float64 `yaml:"cad_file_type"`
	ScannedImage float64 `yaml:"scanned_image"`
}

// DepartmentRule is one department's signal set. Department enumeration
// order in the policy file is significant: ties break toward the earlier
// entry.
type DepartmentRule struct {
	Name          string   `yaml:"name"`
	Keywords      []string `yaml:"keywords"`
	Patterns      []string `yaml:"patterns"`
	FilenameHints []string `yaml:"filename_hints"`
}

type Policy struct {
	Weights     Weights          `yaml:"weights"`
	Departments []DepartmentRule `yaml:"departments"`
}

// DefaultPolicy parses the embedded policy file.
func DefaultPolicy() (Policy, error) {
	return parsePolicy(defaultPolicyYAML)
}

// LoadPolicy reads a policy override from disk.
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return parsePolicy(raw)
}

func parsePolicy(raw []byte) (Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy yaml: %w", err)
	}
	if len(policy.Departments) == 0 {
		return Policy{}, fmt.Errorf("policy defines no departments")
	}
	seen := make(map[string]bool, len(policy.Departments))
	for _, dept := range policy.Departments {
		if dept.Name == "" {
			return Policy{}, fmt.Errorf("policy contains a department without a name")
		}
		if seen[dept.Name] {
			return Policy{}, fmt.Errorf("duplicate department %q in policy", dept.Name)
		}
		seen[dept.Name] = true
		for _, pattern := range dept.Patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return Policy{}, fmt.Errorf("department %s pattern %q: %w", dept.Name, pattern, err)
			}
		}
	}
	return policy, nil
}
