package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
	"github.com/BarkinBalci/event-ingestion-service/internal/ingest"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/memory"
)

const testLogID = "0b8f1c2e-4d7a-4a7e-9c51-3f2d6a1b9e10"

// MockEngine is a mock implementation of Engine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) RunAll(ctx context.Context, filter []string, trigger domain.Trigger) (*domain.RunSummary, error) {
	args := m.Called(ctx, filter, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunSummary), args.Error(1)
}

func (m *MockEngine) CancelRunning(ctx context.Context) ([]*domain.RunLog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RunLog), args.Error(1)
}

func (m *MockEngine) ListRunning(ctx context.Context) ([]ingest.RunningRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ingest.RunningRun), args.Error(1)
}

// MockTriggerPublisher is a mock implementation of queue.TriggerPublisher
type MockTriggerPublisher struct {
	mock.Mock
}

func (m *MockTriggerPublisher) PublishTrigger(ctx context.Context, trigger *dto.ScrapeTrigger) (string, error) {
	args := m.Called(ctx, trigger)
	return args.String(0), args.Error(1)
}

func newTestService(engine Engine, publisher *MockTriggerPublisher) (*ScrapeService, repository.Store) {
	repos := memory.NewStore().Repositories()
	if publisher == nil {
		return NewScrapeService(engine, repos.Runs, repos.Progress, nil, 10*time.Millisecond, zap.NewNop()), repos
	}
	return NewScrapeService(engine, repos.Runs, repos.Progress, publisher, 10*time.Millisecond, zap.NewNop()), repos
}

func intPtr(v int) *int { return &v }

func TestScrapeService_RunScrape(t *testing.T) {
	engine := new(MockEngine)
	svc, _ := newTestService(engine, nil)

	summary := &domain.RunSummary{TotalSources: 1, TotalImported: 2}
	engine.On("RunAll", mock.Anything, []string{"konserthuset"}, domain.Trigger{
		UserEmail: "admin@example.se",
		Source:    domain.TriggerSourceAPI,
	}).Return(summary, nil)

	resp, err := svc.RunScrape(context.Background(), &dto.ScrapeRequest{
		UserEmail:    "admin@example.se",
		ScraperNames: []string{" konserthuset ", ""},
	})

	require.NoError(t, err)
	assert.Same(t, summary, resp)
	engine.AssertExpectations(t)
}

func TestScrapeService_RunScrape_SurvivesRequestCancellation(t *testing.T) {
	engine := new(MockEngine)
	svc, _ := newTestService(engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine.On("RunAll", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), []string(nil), mock.Anything).Return(&domain.RunSummary{}, nil)

	_, err := svc.RunScrape(ctx, &dto.ScrapeRequest{})
	require.NoError(t, err)
	engine.AssertExpectations(t)
}

func TestScrapeService_RunScrape_EngineError(t *testing.T) {
	engine := new(MockEngine)
	svc, _ := newTestService(engine, nil)

	engine.On("RunAll", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := svc.RunScrape(context.Background(), &dto.ScrapeRequest{})
	assert.ErrorContains(t, err, "failed to run scrapers")
}

func TestScrapeService_EnqueueScrape(t *testing.T) {
	publisher := new(MockTriggerPublisher)
	svc, _ := newTestService(new(MockEngine), publisher)

	publisher.On("PublishTrigger", mock.Anything, mock.MatchedBy(func(tr *dto.ScrapeTrigger) bool {
		return len(tr.ScraperNames) == 1 && tr.ScraperNames[0] == "stadsteatern" && !tr.RequestedAt.IsZero()
	})).Return("msg-1", nil)

	resp, err := svc.EnqueueScrape(context.Background(), &dto.ScrapeRequest{ScraperNames: []string{"stadsteatern"}})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", resp.MessageID)
	assert.Equal(t, "queued", resp.Status)
	publisher.AssertExpectations(t)
}

func TestScrapeService_EnqueueScrape_NoQueue(t *testing.T) {
	svc, _ := newTestService(new(MockEngine), nil)

	_, err := svc.EnqueueScrape(context.Background(), &dto.ScrapeRequest{})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestScrapeService_EnqueueScrape_PublishError(t *testing.T) {
	publisher := new(MockTriggerPublisher)
	svc, _ := newTestService(new(MockEngine), publisher)
	publisher.On("PublishTrigger", mock.Anything, mock.Anything).Return("", errors.New("throttled"))

	_, err := svc.EnqueueScrape(context.Background(), &dto.ScrapeRequest{})
	assert.ErrorContains(t, err, "failed to publish trigger to queue")
}

func TestScrapeService_CancelRunning(t *testing.T) {
	engine := new(MockEngine)
	svc, _ := newTestService(engine, nil)

	started := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.On("CancelRunning", mock.Anything).Return([]*domain.RunLog{
		{ID: testLogID, SourceName: "konserthuset", StartedAt: started},
	}, nil)

	resp, err := svc.CancelRunning(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CancelledCount)
	assert.Equal(t, dto.ProcessRef{ID: testLogID, ScraperName: "konserthuset", StartedAt: started}, resp.CancelledProcesses[0])
}

func TestScrapeService_CancelRunning_NothingRunning(t *testing.T) {
	engine := new(MockEngine)
	svc, _ := newTestService(engine, nil)
	engine.On("CancelRunning", mock.Anything).Return([]*domain.RunLog{}, nil)

	resp, err := svc.CancelRunning(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resp.CancelledCount)
	assert.NotNil(t, resp.CancelledProcesses)
}

func TestScrapeService_ListRunning(t *testing.T) {
	engine := new(MockEngine)
	svc, _ := newTestService(engine, nil)

	engine.On("ListRunning", mock.Anything).Return([]ingest.RunningRun{
		{Run: &domain.RunLog{ID: testLogID, SourceName: "konserthuset"}, Counters: domain.RunCounters{Found: 10, Imported: 4}, Local: true},
	}, nil)

	resp, err := svc.ListRunning(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.RunningCount)
	assert.Equal(t, 10, resp.Processes[0].EventsFound)
	assert.Equal(t, 4, resp.Processes[0].EventsImported)
	assert.Equal(t, "konserthuset", resp.Processes[0].ScraperName)
}

func TestScrapeService_GetProgress(t *testing.T) {
	svc, repos := newTestService(new(MockEngine), nil)
	ctx := context.Background()

	require.NoError(t, repos.Runs.Create(ctx, &domain.RunLog{
		ID: testLogID, SourceName: "konserthuset", Status: domain.RunStatusRunning, StartedAt: time.Now().UTC(),
	}))
	require.NoError(t, repos.Progress.Append(ctx, &domain.ProgressEntry{RunLogID: testLogID, Step: domain.StepScraping}))
	require.NoError(t, repos.Progress.Append(ctx, &domain.ProgressEntry{
		RunLogID: testLogID, Step: domain.StepImporting, Current: intPtr(3), Total: intPtr(8), EstimatedTimeRemaining: intPtr(15),
	}))
	require.NoError(t, repos.Progress.Append(ctx, &domain.ProgressEntry{RunLogID: testLogID, Step: domain.StepImporting, Message: "no counters"}))

	resp, err := svc.GetProgress(ctx, testLogID)
	require.NoError(t, err)
	assert.True(t, resp.IsRunning)
	assert.Len(t, resp.ProgressLogs, 3)
	require.NotNil(t, resp.TotalProgress)
	assert.Equal(t, dto.TotalProgress{Current: 3, Total: 8, Percentage: 37}, *resp.TotalProgress)
	require.NotNil(t, resp.EstimatedTimeRemaining)
	assert.Equal(t, 15, *resp.EstimatedTimeRemaining)
}

func TestScrapeService_GetProgress_NoCounters(t *testing.T) {
	svc, repos := newTestService(new(MockEngine), nil)
	ctx := context.Background()
	require.NoError(t, repos.Runs.Create(ctx, &domain.RunLog{ID: testLogID, Status: domain.RunStatusRunning, StartedAt: time.Now()}))

	resp, err := svc.GetProgress(ctx, testLogID)
	require.NoError(t, err)
	assert.Nil(t, resp.TotalProgress)
	assert.Nil(t, resp.EstimatedTimeRemaining)
	assert.NotNil(t, resp.ProgressLogs)
}

func TestScrapeService_GetProgress_Errors(t *testing.T) {
	svc, _ := newTestService(new(MockEngine), nil)

	_, err := svc.GetProgress(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidLogID)

	_, err = svc.GetProgress(context.Background(), testLogID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestScrapeService_WatchProgress(t *testing.T) {
	svc, repos := newTestService(new(MockEngine), nil)
	ctx := context.Background()

	require.NoError(t, repos.Runs.Create(ctx, &domain.RunLog{ID: testLogID, Status: domain.RunStatusRunning, StartedAt: time.Now().UTC()}))
	require.NoError(t, repos.Progress.Append(ctx, &domain.ProgressEntry{RunLogID: testLogID, Step: domain.StepCompleted}))
	_, err := repos.Runs.Finalize(ctx, testLogID, repository.RunFinalization{Status: domain.RunStatusSuccess})
	require.NoError(t, err)

	var seen []*dto.ProgressResponse
	err = svc.WatchProgress(ctx, testLogID, func(p *dto.ProgressResponse) error {
		seen = append(seen, p)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.False(t, seen[0].IsRunning)

	err = svc.WatchProgress(ctx, "0b8f1c2e-0000-4a7e-9c51-3f2d6a1b9e10", func(*dto.ProgressResponse) error { return nil })
	assert.ErrorIs(t, err, ErrRunNotFound)
}
