// Package repotest holds behaviour every repository implementation must share.
// Each backend's tests run these against a fresh store.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/normalize"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
)

// OrganizerSeeder writes an organizer directly, the way an administrator edits
// rows, without going through OrganizerRepository.
type OrganizerSeeder func(t *testing.T, org domain.Organizer)

// RunEventRepository exercises insert and lookup semantics of events
func RunEventRepository(t *testing.T, events repository.EventRepository) {
	ctx := context.Background()
	// unique per call so a shared database can be reused
	tag := uuid.NewString()[:8]
	source := "contract-" + tag
	startsAt := time.Date(2030, 6, 7, 17, 0, 0, 0, time.UTC)

	first := newEvent("jazz-"+tag, "key-1-"+tag, source, startsAt)
	first.ExternalURL = "https://contract.example/" + tag

	t.Run("insert", func(t *testing.T) {
		inserted, err := events.Insert(ctx, first)
		require.NoError(t, err)
		assert.True(t, inserted)

		exists, err := events.ExistsByDedupKey(ctx, first.DedupKey)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = events.IDExists(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("same dedup key is skipped", func(t *testing.T) {
		inserted, err := events.Insert(ctx, newEvent("other-"+tag, first.DedupKey, source, startsAt))
		require.NoError(t, err)
		assert.False(t, inserted)

		exists, err := events.IDExists(ctx, "other-"+tag)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("same id with another key is reported", func(t *testing.T) {
		inserted, err := events.Insert(ctx, newEvent(first.ID, "key-2-"+tag, source, startsAt))
		assert.ErrorIs(t, err, repository.ErrIDTaken)
		assert.False(t, inserted)

		exists, err := events.ExistsByDedupKey(ctx, "key-2-"+tag)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("external url is scoped to source and day", func(t *testing.T) {
		exists, err := events.ExistsByExternalURL(ctx, source, first.ExternalURL, startsAt.Add(4*time.Hour))
		require.NoError(t, err)
		assert.True(t, exists, "same UTC day")

		exists, err = events.ExistsByExternalURL(ctx, source, first.ExternalURL, startsAt.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.False(t, exists, "next day")

		exists, err = events.ExistsByExternalURL(ctx, "another-"+tag, first.ExternalURL, startsAt)
		require.NoError(t, err)
		assert.False(t, exists, "another source")

		exists, err = events.ExistsByExternalURL(ctx, source, "", startsAt)
		require.NoError(t, err)
		assert.False(t, exists, "empty url")
	})

	t.Run("count by source", func(t *testing.T) {
		next := newEvent("jazz-"+tag+"-2", "key-3-"+tag, source, startsAt.AddDate(0, 0, 1))
		next.ExternalURL = first.ExternalURL
		inserted, err := events.Insert(ctx, next)
		require.NoError(t, err)
		require.True(t, inserted, "same url on another day is a new event")

		count, err := events.CountBySource(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

// RunOrganizerRepository exercises name matching of organizers, including
// rows written by seed
func RunOrganizerRepository(t *testing.T, organizers repository.OrganizerRepository, seed OrganizerSeeder) {
	ctx := context.Background()
	tag := uuid.NewString()[:8]

	t.Run("create derives the normalized name", func(t *testing.T) {
		name := "Arena Varberg " + tag
		created, ok, err := organizers.Create(ctx, pendingOrganizer(name))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, normalize.Name(name), created.NormalizedName)

		again, ok, err := organizers.Create(ctx, pendingOrganizer("  ARENA   varberg "+tag))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, created.ID, again.ID)

		found, err := organizers.FindByNormalizedName(ctx, normalize.Name("arena varberg "+tag))
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("administrator rows are matched", func(t *testing.T) {
		id := uuid.NewString()
		seed(t, domain.Organizer{
			ID:               id,
			Name:             "Göteborgs Konserthus " + tag,
			AlternativeNames: []string{"GSO  Konserthuset " + tag, ""},
			Status:           domain.OrganizerStatusActive,
			CreatedAt:        time.Now().UTC(),
		})

		found, err := organizers.FindByNormalizedName(ctx, normalize.Name("GÖTEBORGS konserthus "+tag))
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)
		assert.Equal(t, normalize.Name("Göteborgs Konserthus "+tag), found.NormalizedName)

		found, err = organizers.FindByNormalizedName(ctx, normalize.Name("gso konserthuset "+tag))
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)

		got, err := organizers.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.NeedsReview)
		assert.Equal(t, domain.OrganizerStatusActive, got.Status)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := organizers.FindByNormalizedName(ctx, "okänd arrangör "+tag)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = organizers.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func newEvent(id, key, source string, startsAt time.Time) *domain.CanonicalEvent {
	return &domain.CanonicalEvent{
		ID:             id,
		Name:           "Jazzkväll",
		StartsAt:       startsAt,
		Categories:     []string{"Musik"},
		CategoryScores: map[string]float64{"Musik": 1},
		QualityScore:   60,
		Status:         domain.EventStatusPendingApproval,
		Source:         source,
		DedupKey:       key,
		CreatedAt:      time.Now().UTC(),
	}
}

func pendingOrganizer(name string) *domain.Organizer {
	return &domain.Organizer{
		ID:                 uuid.NewString(),
		Name:               name,
		AlternativeNames:   []string{},
		Status:             domain.OrganizerStatusPending,
		CreatedFromScraper: true,
		ScraperSource:      "contract",
		NeedsReview:        true,
		CreatedAt:          time.Now().UTC(),
	}
}
