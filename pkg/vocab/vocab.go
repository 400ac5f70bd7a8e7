// Package vocab holds the controlled vocabulary the assessment draws its
// terms from. The vocabulary is loaded once at startup and is read-only
// afterwards, so a single instance is safe to share across sessions; it is
// passed explicitly to the components that need it.
package vocab

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Term is one controlled-vocabulary entry.
type Term struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Vocabulary groups the term lists by bowtie category.
type Vocabulary struct {
	Activities   []Term `yaml:"activities" json:"activities"`
	Pressures    []Term `yaml:"pressures" json:"pressures"`
	Controls     []Term `yaml:"controls" json:"controls"`
	Mitigations  []Term `yaml:"mitigations" json:"mitigations"`
	Consequences []Term `yaml:"consequences" json:"consequences"`
}

// Load reads a vocabulary YAML file.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(data)
}

// Parse decodes vocabulary YAML.
func Parse(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return &v, nil
}

// TermCount returns the total number of terms across all categories.
func (v *Vocabulary) TermCount() int {
	return len(v.Activities) + len(v.Pressures) + len(v.Controls) +
		len(v.Mitigations) + len(v.Consequences)
}
