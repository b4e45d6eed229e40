package source

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// Source types
const (
	TypeJSONFeed = "json_feed"
	TypeStatic   = "static"
)

// File is the layout of the sources file
type File struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig defines one source
type SourceConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Enabled     *bool  `yaml:"enabled"` // default true
	OrganizerID string `yaml:"organizer_id"`

	// json_feed
	URL           string            `yaml:"url"`
	Headers       map[string]string `yaml:"headers"`
	UserAgent     string            `yaml:"user_agent"`
	Timeout       time.Duration     `yaml:"timeout"`         // request timeout
	RatePerSecond float64           `yaml:"rate_per_second"` // e.g. 1.0 = 1 req/sec
	Burst         int               `yaml:"burst"`
	MaxRetries    int               `yaml:"max_retries"`
	Backoff       time.Duration     `yaml:"backoff"`     // initial backoff
	MaxBackoff    time.Duration     `yaml:"max_backoff"` // cap
	// Fields maps RawEvent fields (name, date, location, venue, organizer,
	// description, image_url, url, categories) to dotted JSON paths
	Fields map[string]string `yaml:"fields"`

	// static
	Events []domain.RawEvent `yaml:"events"`
}

// IsEnabled reports whether the source runs when no names are given
func (c SourceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadFile reads and validates a sources file
func LoadFile(path string) ([]SourceConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates sources YAML
func Parse(b []byte) ([]SourceConfig, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	names := make(map[string]struct{}, len(f.Sources))
	var errs []error
	for i, s := range f.Sources {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
			continue
		}
		if _, dup := names[s.Name]; dup {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		names[s.Name] = struct{}{}

		switch s.Type {
		case TypeJSONFeed:
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("sources[%d] %s: url is required for %s", i, s.Name, TypeJSONFeed))
			}
		case TypeStatic:
		default:
			errs = append(errs, fmt.Errorf("sources[%d] %s: unknown type %q", i, s.Name, s.Type))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f.Sources, nil
}
