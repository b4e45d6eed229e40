package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/memory"
)

func TestOrganizerResolver_CaseAndWhitespaceVariantsResolveToSameOrganizer(t *testing.T) {
	store := memory.NewStore()
	resolver := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop())
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, domain.RawEvent{OrganizerName: "Arena Varberg"}, "feed", "")
	require.NoError(t, err)
	require.True(t, first.Resolved())
	assert.True(t, first.Created)
	assert.True(t, first.NeedsReview)

	second, err := resolver.Resolve(ctx, domain.RawEvent{OrganizerName: "arena  varberg"}, "feed", "")
	require.NoError(t, err)
	assert.Equal(t, *first.OrganizerID, *second.OrganizerID)
	assert.False(t, second.Created)

	orgs := store.Organizers()
	require.Len(t, orgs, 1)
	assert.Equal(t, "Arena Varberg", orgs[0].Name)
	assert.Equal(t, domain.OrganizerStatusPending, orgs[0].Status)
	assert.True(t, orgs[0].NeedsReview)
	assert.True(t, orgs[0].CreatedFromScraper)
	assert.Equal(t, "feed", orgs[0].ScraperSource)
}

func TestOrganizerResolver_CachedOrganizerReflectsAdminEdits(t *testing.T) {
	store := memory.NewStore()
	resolver := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop())
	ctx := context.Background()
	raw := domain.RawEvent{OrganizerName: "Arena Varberg"}

	first, err := resolver.Resolve(ctx, raw, "feed", "")
	require.NoError(t, err)
	require.True(t, first.NeedsReview)

	approved := store.Organizers()[0]
	approved.NeedsReview = false
	approved.Status = domain.OrganizerStatusActive
	store.PutOrganizer(approved)

	second, err := resolver.Resolve(ctx, raw, "feed", "")
	require.NoError(t, err)
	assert.Equal(t, *first.OrganizerID, *second.OrganizerID)
	assert.False(t, second.NeedsReview, "approval is visible without a restart")
	assert.False(t, second.Created)

	store.DeleteOrganizer(*first.OrganizerID)

	third, err := resolver.Resolve(ctx, raw, "feed", "")
	require.NoError(t, err)
	require.True(t, third.Resolved())
	assert.NotEqual(t, *first.OrganizerID, *third.OrganizerID, "deleted id is not reused")
	assert.True(t, third.Created)
	assert.True(t, third.NeedsReview)

	orgs := store.Organizers()
	require.Len(t, orgs, 1)
	assert.Equal(t, *third.OrganizerID, orgs[0].ID)
}

func TestOrganizerResolver_StableAcrossResolvers(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	a, err := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop()).
		Resolve(ctx, domain.RawEvent{OrganizerName: "Kulturhuset"}, "feed", "")
	require.NoError(t, err)

	// a fresh process cache still finds the stored organizer
	b, err := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop()).
		Resolve(ctx, domain.RawEvent{OrganizerName: "KULTURHUSET"}, "other", "")
	require.NoError(t, err)
	assert.Equal(t, *a.OrganizerID, *b.OrganizerID)
	assert.Len(t, store.Organizers(), 1)
}

func TestOrganizerResolver_ConcurrentCreatesOneOrganizer(t *testing.T) {
	store := memory.NewStore()
	resolver := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop())

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := resolver.Resolve(context.Background(), domain.RawEvent{OrganizerName: "Nya Teatern"}, "feed", "")
			if assert.NoError(t, err) {
				ids[i] = *m.OrganizerID
			}
		}()
	}
	wg.Wait()

	assert.Len(t, store.Organizers(), 1)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestOrganizerResolver_AlternativeNameMatch(t *testing.T) {
	store := memory.NewStore()
	store.PutOrganizer(domain.Organizer{
		ID: "gbg-kh", Name: "Göteborgs Konserthus", AlternativeNames: []string{"Konserthuset Göteborg"},
		Status: domain.OrganizerStatusActive,
	})
	resolver := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop())

	m, err := resolver.Resolve(context.Background(), domain.RawEvent{OrganizerName: "konserthuset  göteborg"}, "feed", "")
	require.NoError(t, err)
	assert.Equal(t, "gbg-kh", *m.OrganizerID)
	assert.False(t, m.Created)
	assert.False(t, m.NeedsReview)
}

func TestOrganizerResolver_LookupOrder(t *testing.T) {
	store := memory.NewStore()
	store.PutOrganizer(domain.Organizer{ID: "bound", Name: "Varbergs Kommun", Status: domain.OrganizerStatusActive})
	resolver := NewOrganizerResolver(store.Repositories().Organizers, zap.NewNop())
	ctx := context.Background()

	m, err := resolver.Resolve(ctx, domain.RawEvent{OrganizerName: "Someone Else"}, "feed", "bound")
	require.NoError(t, err)
	assert.Equal(t, "bound", *m.OrganizerID)

	// missing binding falls back to the venue when no organizer name is present
	m, err = resolver.Resolve(ctx, domain.RawEvent{VenueName: "Sparbanken Arena"}, "feed", "missing")
	require.NoError(t, err)
	require.True(t, m.Resolved())
	assert.True(t, m.Created)

	m, err = resolver.Resolve(ctx, domain.RawEvent{}, "feed", "")
	require.NoError(t, err)
	assert.False(t, m.Resolved())
}
