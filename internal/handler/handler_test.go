package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
	"github.com/BarkinBalci/event-ingestion-service/internal/service"
)

const testLogID = "0b8f1c2e-4d7a-4a7e-9c51-3f2d6a1b9e10"

// MockScrapeService is a mock implementation of service.ScrapeServicer
type MockScrapeService struct {
	mock.Mock
}

func (m *MockScrapeService) RunScrape(ctx context.Context, req *dto.ScrapeRequest) (*dto.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ScrapeResponse), args.Error(1)
}

func (m *MockScrapeService) EnqueueScrape(ctx context.Context, req *dto.ScrapeRequest) (*dto.EnqueueScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EnqueueScrapeResponse), args.Error(1)
}

func (m *MockScrapeService) CancelRunning(ctx context.Context) (*dto.CancelResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CancelResponse), args.Error(1)
}

func (m *MockScrapeService) ListRunning(ctx context.Context) (*dto.RunningResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RunningResponse), args.Error(1)
}

func (m *MockScrapeService) GetProgress(ctx context.Context, logID string) (*dto.ProgressResponse, error) {
	args := m.Called(ctx, logID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProgressResponse), args.Error(1)
}

func (m *MockScrapeService) WatchProgress(ctx context.Context, logID string, fn func(*dto.ProgressResponse) error) error {
	args := m.Called(ctx, logID, fn)
	return args.Error(0)
}

func (m *MockScrapeService) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func serve(h *Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_HealthCheck(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("Health", mock.Anything).Return(nil)

	w := serve(handler, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestHandler_HealthCheck_StorageDown(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("Health", mock.Anything).Return(errors.New("connection refused"))

	w := serve(handler, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_RunScrape_Success(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())

	req := dto.ScrapeRequest{UserEmail: "admin@example.se", ScraperNames: []string{"konserthuset"}}
	summary := &domain.RunSummary{
		TotalSources:  1,
		TotalFound:    3,
		TotalImported: 2,
		Results: []domain.RunResult{{
			LogID: testLogID, Source: "konserthuset", Status: domain.RunStatusSuccess, Success: true,
			EventsFound: 3, EventsImported: 2, DuplicatesSkipped: 1, Errors: []string{},
		}},
	}
	mockService.On("RunScrape", mock.Anything, &req).Return(summary, nil)

	body, _ := json.Marshal(req)
	w := serve(handler, http.MethodPost, "/scrape", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.EqualValues(t, 2, response["totalImported"])
	results := response["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "success", results[0].(map[string]any)["status"])
	assert.EqualValues(t, 1, results[0].(map[string]any)["duplicatesSkipped"])
	mockService.AssertExpectations(t)
}

func TestHandler_RunScrape_EmptyBody(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("RunScrape", mock.Anything, &dto.ScrapeRequest{}).Return(&domain.RunSummary{}, nil)

	w := serve(handler, http.MethodPost, "/scrape", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_RunScrape_InvalidRequest(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())

	for name, body := range map[string]string{
		"invalid json":  `{"scraperNames": [invalid}`,
		"invalid email": `{"userEmail": "not-an-email"}`,
		"empty name":    `{"scraperNames": [""]}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(handler, http.MethodPost, "/scrape", []byte(body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_error", decodeError(t, w).Error)
		})
	}
	mockService.AssertNotCalled(t, "RunScrape")
}

func TestHandler_RunScrape_ServiceError(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("RunScrape", mock.Anything, mock.Anything).Return(nil, errors.New("database unavailable"))

	w := serve(handler, http.MethodPost, "/scrape", []byte(`{}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decodeError(t, w).Error)
}

func TestHandler_EnqueueScrape(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("EnqueueScrape", mock.Anything, mock.Anything).
		Return(&dto.EnqueueScrapeResponse{MessageID: "msg-1", Status: "queued"}, nil)

	w := serve(handler, http.MethodPost, "/scrape/async", []byte(`{"scraperNames":["stadsteatern"]}`))

	assert.Equal(t, http.StatusAccepted, w.Code)
	var response dto.EnqueueScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "msg-1", response.MessageID)
	assert.Equal(t, "queued", response.Status)
}

func TestHandler_EnqueueScrape_NoQueue(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("EnqueueScrape", mock.Anything, mock.Anything).Return(nil, service.ErrQueueUnavailable)

	w := serve(handler, http.MethodPost, "/scrape/async", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "queue_unavailable", decodeError(t, w).Error)
}

func TestHandler_CancelRunning(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("CancelRunning", mock.Anything).Return(&dto.CancelResponse{
		CancelledCount:     1,
		CancelledProcesses: []dto.ProcessRef{{ID: testLogID, ScraperName: "konserthuset"}},
	}, nil)

	w := serve(handler, http.MethodPost, "/scrape/cancel", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response dto.CancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.CancelledCount)
	assert.Equal(t, "konserthuset", response.CancelledProcesses[0].ScraperName)
}

func TestHandler_ListRunning(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("ListRunning", mock.Anything).Return(&dto.RunningResponse{
		RunningCount: 1,
		Processes: []dto.RunningProcess{{
			ProcessRef:     dto.ProcessRef{ID: testLogID, ScraperName: "konserthuset"},
			EventsFound:    12,
			EventsImported: 5,
		}},
	}, nil)

	w := serve(handler, http.MethodGet, "/scrape/cancel", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.EqualValues(t, 1, response["runningCount"])
	process := response["processes"].([]any)[0].(map[string]any)
	assert.Equal(t, testLogID, process["id"])
	assert.EqualValues(t, 12, process["eventsFound"])
}

func TestHandler_GetProgress(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("GetProgress", mock.Anything, testLogID).Return(&dto.ProgressResponse{
		ScraperLog:    &domain.RunLog{ID: testLogID, Status: domain.RunStatusRunning},
		ProgressLogs:  []*domain.ProgressEntry{{Step: domain.StepImporting}},
		TotalProgress: &dto.TotalProgress{Current: 1, Total: 4, Percentage: 25},
		IsRunning:     true,
	}, nil)

	w := serve(handler, http.MethodGet, "/scrape/"+testLogID+"/progress", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["isRunning"])
	assert.EqualValues(t, 25, response["totalProgress"].(map[string]any)["percentage"])
	assert.Nil(t, response["estimatedTimeRemaining"])
}

func TestHandler_GetProgress_MalformedID(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())

	w := serve(handler, http.MethodGet, "/scrape/not-a-uuid/progress", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeError(t, w).Error)
	mockService.AssertNotCalled(t, "GetProgress")
}

func TestHandler_GetProgress_NotFound(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("GetProgress", mock.Anything, testLogID).Return(nil, service.ErrRunNotFound)

	w := serve(handler, http.MethodGet, "/scrape/"+testLogID+"/progress", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error)
}

func TestHandler_StreamProgress(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())

	mockService.On("WatchProgress", mock.Anything, testLogID, mock.Anything).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(*dto.ProgressResponse) error)
			_ = fn(&dto.ProgressResponse{ScraperLog: &domain.RunLog{ID: testLogID, Status: domain.RunStatusRunning}, IsRunning: true})
			_ = fn(&dto.ProgressResponse{ScraperLog: &domain.RunLog{ID: testLogID, Status: domain.RunStatusSuccess}})
		}).
		Return(nil)

	w := serve(handler, http.MethodGet, "/scrape/"+testLogID+"/progress/stream", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, 2, strings.Count(w.Body.String(), "event:progress"))
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}

func TestHandler_StreamProgress_NotFound(t *testing.T) {
	mockService := new(MockScrapeService)
	handler := NewHandler(mockService, nil, zap.NewNop())
	mockService.On("WatchProgress", mock.Anything, testLogID, mock.Anything).Return(service.ErrRunNotFound)

	w := serve(handler, http.MethodGet, "/scrape/"+testLogID+"/progress/stream", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	handler := NewHandler(new(MockScrapeService), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), zap.NewNop())

	w := serve(handler, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ingest_test_total 1")
}
