package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

func collect(t *testing.T, b *Batch) []domain.RawEvent {
	t.Helper()
	var out []domain.RawEvent
	for e, err := range b.Records {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestParse(t *testing.T) {
	yamlDoc := []byte(`
sources:
  - name: varberg
    type: json_feed
    url: https://example.com/events.json
    organizer_id: org-1
    rate_per_second: 2
    max_retries: 4
    timeout: 10s
    fields:
      name: title
      venue: place.name
  - name: manual
    type: static
    enabled: false
    events:
      - name: Jazz på torget
        date: "2030-06-01 19:00"
        venue: Torget
        categories: [Musik]
`)

	cfgs, err := Parse(yamlDoc)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	assert.Equal(t, "varberg", cfgs[0].Name)
	assert.Equal(t, 10*time.Second, cfgs[0].Timeout)
	assert.Equal(t, "place.name", cfgs[0].Fields["venue"])
	assert.True(t, cfgs[0].IsEnabled())

	assert.False(t, cfgs[1].IsEnabled())
	require.Len(t, cfgs[1].Events, 1)
	assert.Equal(t, "Jazz på torget", cfgs[1].Events[0].Name)
	assert.Equal(t, []string{"Musik"}, cfgs[1].Events[0].CategoryHints)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`
sources:
  - name: a
    type: json_feed
  - name: a
    type: static
  - type: static
  - name: b
    type: ftp
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
	assert.Contains(t, err.Error(), "duplicate name")
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "unknown type")
}

func TestRegistry_Select(t *testing.T) {
	reg := Registry{}
	require.NoError(t, reg.Register(NewStatic("b", nil), true, ""))
	require.NoError(t, reg.Register(NewStatic("a", nil), true, "org-1"))
	require.NoError(t, reg.Register(NewStatic("off", nil), false, ""))

	assert.Error(t, reg.Register(NewStatic("a", nil), true, ""))

	selected, unknown := reg.Select(nil)
	assert.Empty(t, unknown)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Name())
	assert.Equal(t, "org-1", selected[0].OrganizerID)
	assert.Equal(t, "b", selected[1].Name())

	selected, unknown = reg.Select([]string{"off", "missing", "off"})
	require.Len(t, selected, 1)
	assert.Equal(t, "off", selected[0].Name())
	assert.Equal(t, []string{"missing"}, unknown)
}

func TestNewRegistry_UnknownType(t *testing.T) {
	_, err := NewRegistry([]SourceConfig{{Name: "x", Type: "rss"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestStatic_Fetch(t *testing.T) {
	events := []domain.RawEvent{{Name: "A"}, {Name: "B"}}
	s := NewStatic("static", events)

	batch, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, events, collect(t, batch))
}

func TestJSONFeed_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [
			{"title": "Rockkväll", "start": "2030-05-01T18:00:00Z", "place": {"name": "Arena Varberg"},
			 "organizer": "Varbergs Teater", "tags": ["Musik", "Rock"], "link": "https://example.com/e/1"},
			{"name": "Vårmarknad", "date": 1906358400, "location": "Stortorget", "category": "Marknad, Mat"},
			"not an object"
		]}`))
	}))
	defer server.Close()

	feed, err := NewJSONFeed(SourceConfig{
		Name:    "feed",
		URL:     server.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
		Fields:  map[string]string{"venue": "place.name"},
	}, zap.NewNop())
	require.NoError(t, err)

	batch, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Total)

	events := collect(t, batch)
	require.Len(t, events, 2)

	assert.Equal(t, "Rockkväll", events[0].Name)
	assert.Equal(t, "2030-05-01T18:00:00Z", events[0].DateText)
	assert.Equal(t, "Arena Varberg", events[0].VenueName)
	assert.Equal(t, "Varbergs Teater", events[0].OrganizerName)
	assert.Equal(t, []string{"Musik", "Rock"}, events[0].CategoryHints)
	assert.Equal(t, "https://example.com/e/1", events[0].ExternalURL)

	assert.Equal(t, "Vårmarknad", events[1].Name)
	assert.Equal(t, "1906358400", events[1].DateText)
	assert.Equal(t, "Stortorget", events[1].Location)
	assert.Equal(t, []string{"Marknad", "Mat"}, events[1].CategoryHints)
}

func TestJSONFeed_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"name": "Efter tre försök"}]`))
	}))
	defer server.Close()

	feed, err := NewJSONFeed(SourceConfig{
		Name: "flaky", URL: server.URL, RatePerSecond: 100, Burst: 10,
		MaxRetries: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	batch, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "Efter tre försök", collect(t, batch)[0].Name)
}

func TestJSONFeed_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	feed, err := NewJSONFeed(SourceConfig{Name: "gone", URL: server.URL, MaxRetries: 5, Backoff: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	_, err = feed.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestJSONFeed_UnrecognizedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {}}`))
	}))
	defer server.Close()

	feed, err := NewJSONFeed(SourceConfig{Name: "odd", URL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = feed.Fetch(context.Background())
	assert.ErrorContains(t, err, "no event list")
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	cause := errors.New("run cancelled")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	calls := 0
	err := retry(ctx, 5, time.Millisecond, time.Millisecond, func() error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}
