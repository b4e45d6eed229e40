package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/repotest"
)

func TestStore_EventRepository(t *testing.T) {
	repotest.RunEventRepository(t, NewStore().Repositories().Events)
}

func TestStore_OrganizerRepository(t *testing.T) {
	store := NewStore()
	repotest.RunOrganizerRepository(t, store.Repositories().Organizers, func(_ *testing.T, org domain.Organizer) {
		store.PutOrganizer(org)
	})
}

func TestStore_DeleteOrganizer(t *testing.T) {
	store := NewStore()
	store.PutOrganizer(domain.Organizer{ID: "kh", Name: "Konserthuset"})
	store.DeleteOrganizer("kh")

	_, err := store.Repositories().Organizers.Get(context.Background(), "kh")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, store.Organizers())
}

func TestStore_FinalizeOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	require.NoError(t, repos.Runs.Create(ctx, &domain.RunLog{
		ID: "run-1", SourceName: "test", Status: domain.RunStatusRunning, StartedAt: time.Now().UTC(),
	}))

	run, err := repos.Runs.Finalize(ctx, "run-1", repository.RunFinalization{
		Status:   domain.RunStatusSuccess,
		Counters: domain.RunCounters{Found: 3, Imported: 2, Duplicates: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.NotNil(t, run.DurationMs)
	assert.Equal(t, 2, run.EventsImported)

	_, err = repos.Runs.Finalize(ctx, "run-1", repository.RunFinalization{Status: domain.RunStatusFailed})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := repos.Runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, stored.Status)
}

func TestStore_RequestCancelFlagsRunningOnly(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	now := time.Now().UTC()

	require.NoError(t, repos.Runs.Create(ctx, &domain.RunLog{ID: "r1", Status: domain.RunStatusRunning, StartedAt: now}))
	require.NoError(t, repos.Runs.Create(ctx, &domain.RunLog{ID: "r2", Status: domain.RunStatusRunning, StartedAt: now.Add(time.Second)}))
	_, err := repos.Runs.Finalize(ctx, "r2", repository.RunFinalization{Status: domain.RunStatusSuccess})
	require.NoError(t, err)

	flagged, err := repos.Runs.RequestCancel(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "r1", flagged[0].ID)

	requested, err := repos.Runs.IsCancelRequested(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, requested)

	requested, err = repos.Runs.IsCancelRequested(ctx, "r2")
	require.NoError(t, err)
	assert.False(t, requested)
}

func TestStore_ProgressOrdered(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	for _, step := range []domain.ProgressStep{domain.StepStarting, domain.StepScraping, domain.StepCompleted} {
		require.NoError(t, repos.Progress.Append(ctx, &domain.ProgressEntry{RunLogID: "r1", Step: step}))
	}

	entries, err := repos.Progress.ListByRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.StepStarting, entries[0].Step)
	assert.Equal(t, domain.StepCompleted, entries[2].Step)
	assert.Less(t, entries[0].ID, entries[2].ID)
}
