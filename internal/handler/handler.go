package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/event-ingestion-service/docs"
	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
	"github.com/BarkinBalci/event-ingestion-service/internal/service"
)

type Handler struct {
	scrapeService service.ScrapeServicer
	metrics       http.Handler
	router        *gin.Engine
	log           *zap.Logger
}

// NewHandler creates the control API. metrics may be nil.
func NewHandler(scrapeService service.ScrapeServicer, metrics http.Handler, log *zap.Logger) *Handler {
	h := &Handler{
		scrapeService: scrapeService,
		metrics:       metrics,
		router:        gin.Default(),
		log:           log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	scrape := h.router.Group("/scrape")
	scrape.POST("", h.runScrape)
	scrape.POST("/async", h.enqueueScrape)
	scrape.POST("/cancel", h.cancelRunning)
	scrape.GET("/cancel", h.listRunning)
	scrape.GET("/:logId/progress", h.getProgress)
	scrape.GET("/:logId/progress/stream", h.streamProgress)

	if h.metrics != nil {
		h.router.GET("/metrics", gin.WrapH(h.metrics))
	}
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check that the service and its run log store are reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} dto.ErrorResponse
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.scrapeService.Health(c.Request.Context()); err != nil {
		h.log.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   dto.ErrInternal,
			Message: "storage unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// runScrape handles POST /scrape
// @Summary Run scrapers
// @Description Run all enabled scrapers, or the named subset, and wait for the summary
// @Tags scrape
// @Accept json
// @Produce json
// @Param request body dto.ScrapeRequest false "Scrapers to run"
// @Success 200 {object} domain.RunSummary
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scrape [post]
func (h *Handler) runScrape(c *gin.Context) {
	req, ok := h.bindScrapeRequest(c)
	if !ok {
		return
	}

	summary, err := h.scrapeService.RunScrape(c.Request.Context(), req)
	if err != nil {
		h.log.Error("Failed to run scrapers", zap.Error(err), zap.Strings("scrapers", req.ScraperNames))
		h.writeError(c, err)
		return
	}

	h.log.Info("Scrape finished",
		zap.Int("sources", summary.TotalSources),
		zap.Int("imported", summary.TotalImported),
		zap.Int("duplicates", summary.TotalDuplicates))

	c.JSON(http.StatusOK, summary)
}

// enqueueScrape handles POST /scrape/async
// @Summary Queue a scrape
// @Description Publish a scrape trigger for the queue worker
// @Tags scrape
// @Accept json
// @Produce json
// @Param request body dto.ScrapeRequest false "Scrapers to run"
// @Success 202 {object} dto.EnqueueScrapeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scrape/async [post]
func (h *Handler) enqueueScrape(c *gin.Context) {
	req, ok := h.bindScrapeRequest(c)
	if !ok {
		return
	}

	resp, err := h.scrapeService.EnqueueScrape(c.Request.Context(), req)
	if err != nil {
		h.log.Error("Failed to queue scrape", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// cancelRunning handles POST /scrape/cancel
// @Summary Cancel running scrapers
// @Description Ask every running scraper to stop. Safe to repeat.
// @Tags scrape
// @Produce json
// @Success 200 {object} dto.CancelResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scrape/cancel [post]
func (h *Handler) cancelRunning(c *gin.Context) {
	resp, err := h.scrapeService.CancelRunning(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to cancel scrapers", zap.Error(err))
		h.writeError(c, err)
		return
	}

	h.log.Info("Scrapers cancelled", zap.Int("count", resp.CancelledCount))
	c.JSON(http.StatusOK, resp)
}

// listRunning handles GET /scrape/cancel
// @Summary List running scrapers
// @Description List running scrapers with their live counters
// @Tags scrape
// @Produce json
// @Success 200 {object} dto.RunningResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scrape/cancel [get]
func (h *Handler) listRunning(c *gin.Context) {
	resp, err := h.scrapeService.ListRunning(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list running scrapers", zap.Error(err))
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getProgress handles GET /scrape/{logId}/progress
// @Summary Scraper progress
// @Description Get a scraper log with its progress entries
// @Tags scrape
// @Produce json
// @Param logId path string true "Scraper log id" format(uuid)
// @Success 200 {object} dto.ProgressResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scrape/{logId}/progress [get]
func (h *Handler) getProgress(c *gin.Context) {
	var req dto.ProgressRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.validationError(c, err)
		return
	}

	resp, err := h.scrapeService.GetProgress(c.Request.Context(), req.LogID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// streamProgress handles GET /scrape/{logId}/progress/stream
// @Summary Stream scraper progress
// @Description Server-sent "progress" events until the scraper finishes
// @Tags scrape
// @Produce text/event-stream
// @Param logId path string true "Scraper log id" format(uuid)
// @Success 200 {object} dto.ProgressResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /scrape/{logId}/progress/stream [get]
func (h *Handler) streamProgress(c *gin.Context) {
	var req dto.ProgressRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.validationError(c, err)
		return
	}

	ctx := c.Request.Context()
	streaming := false

	err := h.scrapeService.WatchProgress(ctx, req.LogID, func(p *dto.ProgressResponse) error {
		if !streaming {
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			streaming = true
		}
		c.SSEvent("progress", p)
		c.Writer.Flush()
		return nil
	})

	switch {
	case err == nil:
	case !streaming:
		h.writeError(c, err)
	case errors.Is(err, context.Canceled):
		h.log.Debug("Progress stream closed by client", zap.String("log_id", req.LogID))
	default:
		h.log.Warn("Progress stream failed", zap.String("log_id", req.LogID), zap.Error(err))
		c.SSEvent("error", dto.ErrorResponse{Error: dto.ErrInternal, Message: err.Error()})
		c.Writer.Flush()
	}
}

func (h *Handler) bindScrapeRequest(c *gin.Context) (*dto.ScrapeRequest, bool) {
	var req dto.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.validationError(c, err)
		return nil, false
	}
	return &req, true
}

func (h *Handler) validationError(c *gin.Context, err error) {
	h.log.Warn("Invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   dto.ErrValidation,
		Message: err.Error(),
	})
}

// writeError maps service errors onto status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidLogID):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrValidation, Message: err.Error()})
	case errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: dto.ErrNotFound, Message: service.ErrRunNotFound.Error()})
	case errors.Is(err, service.ErrQueueUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: dto.ErrQueueUnavailable, Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: dto.ErrInternal, Message: err.Error()})
	}
}
