package pipeline

import (
	"context"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/classifier"
	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/normalize"
)

// Heuristic weights
const (
	hintWeight        = 0.6
	nameHitWeight     = 0.25
	descriptionWeight = 0.1
	minCategoryScore  = 0.1
	maxCategories     = 3
)

// RemoteClassifier scores an event against the taxonomy
type RemoteClassifier interface {
	Classify(ctx context.Context, req classifier.Request) ([]classifier.Prediction, error)
}

// Categorizer assigns one to three ranked categories to a raw event
type Categorizer struct {
	taxonomy  *Taxonomy
	remote    RemoteClassifier
	threshold float64
	log       *zap.Logger
}

// NewCategorizer creates a categorizer. remote may be nil.
func NewCategorizer(taxonomy *Taxonomy, remote RemoteClassifier, threshold float64, log *zap.Logger) *Categorizer {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Categorizer{taxonomy: taxonomy, remote: remote, threshold: threshold, log: log}
}

// Categorize runs the keyword heuristic and, when it is not confident, the
// remote classifier. It never fails; the worst case is the fallback category.
func (c *Categorizer) Categorize(ctx context.Context, raw domain.RawEvent) domain.Categorization {
	heuristic := c.heuristic(raw)
	_, best := heuristic.Top()

	if best < c.threshold && c.remote != nil {
		remote, err := c.classifyRemote(ctx, raw)
		switch {
		case err != nil:
			c.log.Warn("Remote classification failed, using heuristic",
				zap.String("name", raw.Name),
				zap.Error(err))
		case len(remote.Categories) == 0:
			c.log.Debug("Remote classifier returned no usable categories", zap.String("name", raw.Name))
		default:
			return remote
		}
	}

	if len(heuristic.Categories) == 0 {
		return fallbackCategorization()
	}
	return heuristic
}

func (c *Categorizer) heuristic(raw domain.RawEvent) domain.Categorization {
	name := " " + normalize.Text(raw.Name) + " "
	description := " " + normalize.Text(raw.Description) + " "

	hints := make(map[string]struct{}, len(raw.CategoryHints))
	for _, h := range raw.CategoryHints {
		if n := normalize.Text(h); n != "" {
			hints[n] = struct{}{}
		}
	}

	scores := make(map[string]float64)
	for i, cat := range c.taxonomy.Categories {
		score := 0.0

		if c.hintMatches(hints, i) {
			score += hintWeight
		}
		for _, kw := range c.taxonomy.keywords[i] {
			padded := " " + kw + " "
			if strings.Contains(name, padded) {
				score += nameHitWeight
			}
			if strings.Contains(description, padded) {
				score += descriptionWeight
			}
		}

		if score > 0 {
			scores[cat.Name] = round2(min(score, 1.0))
		}
	}

	return c.rank(scores)
}

func (c *Categorizer) hintMatches(hints map[string]struct{}, idx int) bool {
	if len(hints) == 0 {
		return false
	}
	if _, ok := hints[normalize.Text(c.taxonomy.Categories[idx].Name)]; ok {
		return true
	}
	for _, kw := range c.taxonomy.keywords[idx] {
		if _, ok := hints[kw]; ok {
			return true
		}
	}
	return false
}

func (c *Categorizer) classifyRemote(ctx context.Context, raw domain.RawEvent) (domain.Categorization, error) {
	preds, err := c.remote.Classify(ctx, classifier.Request{
		Name:        raw.Name,
		Description: raw.Description,
		Hints:       raw.CategoryHints,
		Categories:  c.taxonomy.Names(),
	})
	if err != nil {
		return domain.Categorization{}, err
	}

	scores := make(map[string]float64, len(preds))
	for _, p := range preds {
		name, ok := c.taxonomy.Lookup(p.Name)
		if !ok || math.IsNaN(p.Score) {
			continue
		}
		score := round2(min(max(p.Score, 0), 1))
		if score > scores[name] {
			scores[name] = score
		}
	}

	res := c.rank(scores)
	res.Remote = true
	return res, nil
}

// rank drops low scores, orders by score then taxonomy priority and keeps the top three
func (c *Categorizer) rank(scores map[string]float64) domain.Categorization {
	names := make([]string, 0, len(scores))
	for name, score := range scores {
		if score >= minCategoryScore {
			names = append(names, name)
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		if scores[a] != scores[b] {
			if scores[a] > scores[b] {
				return -1
			}
			return 1
		}
		return c.taxonomy.Priority(a) - c.taxonomy.Priority(b)
	})

	if len(names) > maxCategories {
		names = names[:maxCategories]
	}

	kept := make(map[string]float64, len(names))
	for _, n := range names {
		kept[n] = scores[n]
	}
	return domain.Categorization{Categories: names, Scores: kept}
}

func fallbackCategorization() domain.Categorization {
	return domain.Categorization{
		Categories: []string{domain.UncategorizedCategory},
		Scores:     map[string]float64{domain.UncategorizedCategory: 1.0},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
