package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/memory"
)

func TestSlugify(t *testing.T) {
	day := time.Date(2030, 6, 7, 17, 0, 0, 0, time.UTC)

	assert.Equal(t, "varkonsert-i-orebro-2030-06-07", Slugify("Vårkonsert i Örebro", day))
	assert.Equal(t, "rock-n-roll-natt-2030-06-07", Slugify("  Rock'n'Roll -- Natt!! ", day))
	assert.Equal(t, "event-2030-06-07", Slugify("???", day))

	// a date-only local midnight keeps its calendar day
	midnight, err := ParseEventDate("2030-01-10")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(Slugify("Vinterjazz", midnight), "-2030-01-10"))

	long := Slugify(strings.Repeat("a", 200), day)
	assert.LessOrEqual(t, len(long), maxSlugBase+len("-2030-06-07"))
}

func TestIDAllocator_AvoidsStoredAndRunCollisions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()

	_, err := repos.Events.Insert(ctx, &domain.CanonicalEvent{ID: "jazz-2030-06-07", DedupKey: "k"})
	require.NoError(t, err)

	alloc := NewIDAllocator(repos.Events)

	first, err := alloc.Allocate(ctx, "jazz-2030-06-07")
	require.NoError(t, err)
	assert.Equal(t, "jazz-2030-06-07-2", first)

	second, err := alloc.Allocate(ctx, "jazz-2030-06-07")
	require.NoError(t, err)
	assert.Equal(t, "jazz-2030-06-07-3", second)

	fresh, err := alloc.Allocate(ctx, "rock-2030-06-07")
	require.NoError(t, err)
	assert.Equal(t, "rock-2030-06-07", fresh)
}
