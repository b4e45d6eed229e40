package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/normalize"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

// DedupKey hashes normalized name, UTC date and normalized venue (or location)
func DedupKey(raw domain.RawEvent, startsAt time.Time) string {
	place := normalize.Text(raw.VenueName)
	if place == "" {
		place = normalize.Text(raw.Location)
	}
	sum := sha256.Sum256([]byte(normalize.Text(raw.Name) + "|" + startsAt.UTC().Format("2006-01-02") + "|" + place))
	return hex.EncodeToString(sum[:])
}

// DedupResult is the outcome of checking one raw event
type DedupResult struct {
	Key       string
	StartsAt  time.Time
	Duplicate bool
	// Reason is "stored", "external_url" or "batch" for duplicates
	Reason string
}

// Deduplicator detects events that were already imported
type Deduplicator struct {
	events repository.EventRepository
}

// NewDeduplicator creates a deduplicator reading from the event repository
func NewDeduplicator(events repository.EventRepository) *Deduplicator {
	return &Deduplicator{events: events}
}

// NewBatch starts a per-run batch for a source
func (d *Deduplicator) NewBatch(source string) *DedupBatch {
	return &DedupBatch{
		events: d.events,
		source: source,
		keys:   make(map[string]struct{}),
		urls:   make(map[string]struct{}),
	}
}

// DedupBatch remembers keys seen during one run. It is not safe for concurrent use.
type DedupBatch struct {
	events repository.EventRepository
	source string
	keys   map[string]struct{}
	urls   map[string]struct{}
}

// IsDuplicate reports whether raw was already imported or seen in this batch
func (b *DedupBatch) IsDuplicate(ctx context.Context, raw domain.RawEvent) (bool, error) {
	res, err := b.Check(ctx, raw)
	if err != nil {
		return false, err
	}
	return res.Duplicate, nil
}

// Check computes the dedup key and classifies the record. It records nothing;
// call Remember once the event is stored.
func (b *DedupBatch) Check(ctx context.Context, raw domain.RawEvent) (DedupResult, error) {
	startsAt, err := ParseEventDate(raw.DateText)
	if err != nil {
		return DedupResult{}, err
	}
	res := DedupResult{Key: DedupKey(raw, startsAt), StartsAt: startsAt}

	if _, ok := b.keys[res.Key]; ok {
		res.Duplicate, res.Reason = true, "batch"
		return res, nil
	}
	if raw.ExternalURL != "" {
		if _, ok := b.urls[urlDayKey(raw.ExternalURL, startsAt)]; ok {
			res.Duplicate, res.Reason = true, "batch"
			return res, nil
		}
	}

	stored, err := b.events.ExistsByDedupKey(ctx, res.Key)
	if err != nil {
		return DedupResult{}, fmt.Errorf("failed to check dedup key: %w", err)
	}
	if stored {
		res.Duplicate, res.Reason = true, "stored"
		return res, nil
	}

	// A recurring show may link every date to the same page, so the URL only
	// identifies an event together with its day.
	if raw.ExternalURL != "" {
		imported, err := b.events.ExistsByExternalURL(ctx, b.source, raw.ExternalURL, startsAt)
		if err != nil {
			return DedupResult{}, fmt.Errorf("failed to check external url: %w", err)
		}
		if imported {
			res.Duplicate, res.Reason = true, "external_url"
			return res, nil
		}
	}
	return res, nil
}

// Remember marks a stored event so later records in the batch with the same
// key, or the same URL on the same day, are duplicates.
func (b *DedupBatch) Remember(res DedupResult, externalURL string) {
	b.keys[res.Key] = struct{}{}
	if externalURL != "" {
		b.urls[urlDayKey(externalURL, res.StartsAt)] = struct{}{}
	}
}

func urlDayKey(url string, startsAt time.Time) string {
	return startsAt.UTC().Format("2006-01-02") + "|" + url
}
