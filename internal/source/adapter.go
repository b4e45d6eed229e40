package source

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// Adapter produces raw events from one external source
type Adapter interface {
	Name() string
	// Fetch contacts the source. An error here is a source fetch failure; an
	// error yielded by Batch.Records is a failure in the middle of the stream.
	Fetch(ctx context.Context) (*Batch, error)
}

// Batch is the lazily consumed output of one Fetch
type Batch struct {
	// Total is the number of records the source announced, 0 when unknown
	Total   int
	Records iter.Seq2[domain.RawEvent, error]
}

// SliceBatch wraps already materialized events
func SliceBatch(events []domain.RawEvent) *Batch {
	return &Batch{
		Total: len(events),
		Records: func(yield func(domain.RawEvent, error) bool) {
			for _, e := range events {
				if !yield(e, nil) {
					return
				}
			}
		},
	}
}

// Registered is an adapter with its run settings
type Registered struct {
	Adapter Adapter
	Enabled bool
	// OrganizerID binds every event of the source to an existing organizer
	OrganizerID string
}

// Name returns the adapter name
func (r Registered) Name() string {
	return r.Adapter.Name()
}

// Registry maps source names to adapters
type Registry map[string]Registered

// Register adds the adapter, rejecting duplicate names
func (r Registry) Register(adapter Adapter, enabled bool, organizerID string) error {
	name := adapter.Name()
	if name == "" {
		return fmt.Errorf("adapter name is required")
	}
	if _, ok := r[name]; ok {
		return fmt.Errorf("duplicate source name: %s", name)
	}
	r[name] = Registered{Adapter: adapter, Enabled: enabled, OrganizerID: organizerID}
	return nil
}

// Names returns every registered name in sorted order
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Select returns the enabled adapters, or the named ones when names is non-empty.
// Named adapters are selected even when disabled; unknown names are returned separately.
func (r Registry) Select(names []string) (selected []Registered, unknown []string) {
	if len(names) == 0 {
		for _, name := range r.Names() {
			if r[name].Enabled {
				selected = append(selected, r[name])
			}
		}
		return selected, nil
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		reg, ok := r[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, reg)
	}
	return selected, unknown
}

// NewFromConfig builds the adapter for a source definition
func NewFromConfig(c SourceConfig, log *zap.Logger) (Adapter, error) {
	switch c.Type {
	case TypeJSONFeed:
		return NewJSONFeed(c, log)
	case TypeStatic:
		return NewStatic(c.Name, c.Events), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.Type)
	}
}

// NewRegistry builds a registry from source definitions
func NewRegistry(cfgs []SourceConfig, log *zap.Logger) (Registry, error) {
	reg := make(Registry, len(cfgs))
	for _, c := range cfgs {
		adapter, err := NewFromConfig(c, log.With(zap.String("source", c.Name)))
		if err != nil {
			return nil, fmt.Errorf("failed to build source %q: %w", c.Name, err)
		}
		if err := reg.Register(adapter, c.IsEnabled(), c.OrganizerID); err != nil {
			return nil, err
		}
	}

	log.Info("Source registry built",
		zap.Int("sources", len(reg)),
		zap.Strings("names", reg.Names()))
	return reg, nil
}
