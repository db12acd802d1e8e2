package questionnaire

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader is the narrow external-collaborator interface phase 0 consumes:
// input a path, output the normalized questionnaire and its
// canonical-bytes hash. Implementations must be deterministic.
type Loader interface {
	Load(path string) (Questionnaire, string, error)
}

// YAMLLoader loads a Questionnaire from a YAML file on disk.
type YAMLLoader struct{}

// NewYAMLLoader returns the default file-backed Loader.
func NewYAMLLoader() YAMLLoader { return YAMLLoader{} }

// Load reads path, parses it as YAML, normalizes dimension IDs, and
// returns the normalized Questionnaire plus its canonical hash.
func (YAMLLoader) Load(path string) (Questionnaire, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Questionnaire{}, "", fmt.Errorf("reading questionnaire %q: %w", path, err)
	}

	var q Questionnaire
	if err := yaml.Unmarshal(raw, &q); err != nil {
		return Questionnaire{}, "", fmt.Errorf("parsing questionnaire %q: %w", path, err)
	}

	q = Normalize(q)
	return q, Hash(q), nil
}
