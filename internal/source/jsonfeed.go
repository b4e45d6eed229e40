package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

const maxFeedBytes = 16 << 20

// default JSON keys per RawEvent field, tried after any configured path
var defaultPaths = map[string][]string{
	"name":        {"name", "title", "event_name", "eventName"},
	"date":        {"start", "start_date", "startDate", "starts_at", "date", "datetime", "start_time"},
	"location":    {"location", "address", "city", "place"},
	"venue":       {"venue", "venue_name", "venueName", "arena"},
	"organizer":   {"organizer", "organiser", "organizer_name", "arranger", "arrangor"},
	"description": {"description", "summary", "body", "text"},
	"image_url":   {"image", "image_url", "imageUrl", "thumbnail"},
	"url":         {"url", "link", "event_url", "permalink"},
	"categories":  {"categories", "category", "tags", "genres"},
}

// JSONFeed fetches an HTTP JSON document listing events
type JSONFeed struct {
	cfg     SourceConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewJSONFeed creates a rate limited, retrying JSON feed adapter
func NewJSONFeed(cfg SourceConfig, log *zap.Logger) (*JSONFeed, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "event-ingestion-service/1.0"
	}

	return &JSONFeed{
		cfg:     cfg,
		client:  newHTTPClient(defaultDur(cfg.Timeout, 30*time.Second)),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		log:     log,
	}, nil
}

func (f *JSONFeed) Name() string { return f.cfg.Name }

// Fetch downloads the feed and returns its items as a lazy batch
func (f *JSONFeed) Fetch(ctx context.Context) (*Batch, error) {
	var body []byte
	err := retry(ctx, f.cfg.MaxRetries,
		defaultDur(f.cfg.Backoff, 500*time.Millisecond),
		defaultDur(f.cfg.MaxBackoff, 5*time.Second),
		func() error {
			b, err := f.get(ctx)
			if err != nil {
				f.log.Warn("Feed request failed", zap.String("url", f.cfg.URL), zap.Error(err))
				return err
			}
			body = b
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", f.cfg.URL, err)
	}

	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	f.log.Info("Feed fetched", zap.String("url", f.cfg.URL), zap.Int("items", len(items)))

	return &Batch{
		Total: len(items),
		Records: func(yield func(domain.RawEvent, error) bool) {
			for _, item := range items {
				if !yield(f.toRawEvent(item), nil) {
					return
				}
			}
		},
	}, nil
}

func (f *JSONFeed) get(ctx context.Context) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return body, nil
}

// decodeItems accepts a top-level array or an object wrapping it under
// data, events, items or results
func decodeItems(body []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	var list []any
	switch t := doc.(type) {
	case []any:
		list = t
	case map[string]any:
		for _, key := range []string{"data", "events", "items", "results"} {
			if l, ok := t[key].([]any); ok {
				list = l
				break
			}
		}
		if list == nil {
			return nil, fmt.Errorf("failed to decode feed: no event list under data, events, items or results")
		}
	default:
		return nil, fmt.Errorf("failed to decode feed: unexpected document type %T", doc)
	}

	items := make([]map[string]any, 0, len(list))
	for _, raw := range list {
		if m, ok := raw.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items, nil
}

func (f *JSONFeed) paths(field string) []string {
	if p, ok := f.cfg.Fields[field]; ok && p != "" {
		return append([]string{p}, defaultPaths[field]...)
	}
	return defaultPaths[field]
}

func (f *JSONFeed) toRawEvent(item map[string]any) domain.RawEvent {
	return domain.RawEvent{
		Name:          pickStr(item, f.paths("name")...),
		DateText:      pickStr(item, f.paths("date")...),
		Location:      pickStr(item, f.paths("location")...),
		VenueName:     pickStr(item, f.paths("venue")...),
		OrganizerName: pickStr(item, f.paths("organizer")...),
		Description:   pickStr(item, f.paths("description")...),
		ImageURL:      pickStr(item, f.paths("image_url")...),
		ExternalURL:   pickStr(item, f.paths("url")...),
		CategoryHints: pickStrings(item, f.paths("categories")...),
	}
}
