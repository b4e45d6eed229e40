package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

const maxSlugBase = 80

var ligatures = strings.NewReplacer("æ", "ae", "ø", "o", "ß", "ss", "œ", "oe", "đ", "d", "ł", "l")

// Slugify builds "<name>-<YYYY-MM-DD>" with diacritics stripped, so
// "Vårkonsert i Örebro" on 2025-06-07 becomes "varkonsert-i-orebro-2025-06-07".
// The date is the Local calendar day.
func Slugify(name string, startsAt time.Time) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	folded = ligatures.Replace(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	base := strings.Trim(b.String(), "-")
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "event"
	}
	return base + "-" + startsAt.In(Local).Format("2006-01-02")
}

// IDAllocator hands out event ids unique against storage and the current run
type IDAllocator struct {
	events repository.EventRepository
	taken  map[string]struct{}
}

// NewIDAllocator creates an allocator for one run
func NewIDAllocator(events repository.EventRepository) *IDAllocator {
	return &IDAllocator{events: events, taken: make(map[string]struct{})}
}

// Allocate returns base, or base-2, base-3, ... for the first free id
func (a *IDAllocator) Allocate(ctx context.Context, base string) (string, error) {
	for n := 1; n < 1000; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		if _, ok := a.taken[candidate]; ok {
			continue
		}
		exists, err := a.events.IDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check id collision: %w", err)
		}
		if !exists {
			a.taken[candidate] = struct{}{}
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to allocate id for %s: too many collisions", base)
}
