package pipeline

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/normalize"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Category is one taxonomy entry with its keywords
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is the ordered category list; order is the tie-break priority
type Taxonomy struct {
	Categories []Category `yaml:"categories"`

	priority map[string]int
	byKey    map[string]string
	keywords [][]string
}

// DefaultTaxonomy returns the embedded taxonomy
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// LoadTaxonomy reads a taxonomy file, or the embedded default when path is empty
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return ParseTaxonomy(b)
}

// ParseTaxonomy decodes and indexes a taxonomy document
func ParseTaxonomy(b []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	t.priority = make(map[string]int, len(t.Categories))
	t.byKey = make(map[string]string, len(t.Categories))
	t.keywords = make([][]string, len(t.Categories))
	for i, c := range t.Categories {
		if c.Name == "" || c.Name == domain.UncategorizedCategory {
			return nil, fmt.Errorf("taxonomy category %d has an invalid name %q", i, c.Name)
		}
		if _, dup := t.priority[c.Name]; dup {
			return nil, fmt.Errorf("duplicate taxonomy category %q", c.Name)
		}
		t.priority[c.Name] = i
		t.byKey[normalize.Text(c.Name)] = c.Name

		seen := make(map[string]struct{})
		for _, kw := range c.Keywords {
			n := normalize.Text(kw)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			t.keywords[i] = append(t.keywords[i], n)
		}
	}
	return &t, nil
}

// Names returns category names in priority order
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// Priority returns the tie-break rank of a category, lower first
func (t *Taxonomy) Priority(name string) int {
	if p, ok := t.priority[name]; ok {
		return p
	}
	return len(t.Categories)
}

// Lookup resolves a free-text label (any case or punctuation) to a category name
func (t *Taxonomy) Lookup(label string) (string, bool) {
	name, ok := t.byKey[normalize.Text(label)]
	return name, ok
}
