package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/internal/middleware"
	appErrors "github.com/noah-isme/exam-room-api/pkg/errors"
	"github.com/noah-isme/exam-room-api/pkg/response"
)

type summaryService interface {
	DailySummary(ctx context.Context, query dto.SummaryQuery) (*dto.DailySummaryResponse, bool, error)
	Statistics(ctx context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, bool, error)
}

// SummaryHandler serves allocation summaries and statistics.
type SummaryHandler struct {
	service summaryService
}

// NewSummaryHandler constructs the handler.
func NewSummaryHandler(svc summaryService) *SummaryHandler {
	return &SummaryHandler{service: svc}
}

// Register mounts the summary routes on rg.
func (h *SummaryHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/allocations/summary", h.Daily)
	rg.GET("/allocations/statistics", h.Statistics)
}

// Daily godoc
// @Summary Allocation summary for one exam date
// @Tags Allocations
// @Produce json
// @Param date query string true "Exam date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /allocations/summary [get]
func (h *SummaryHandler) Daily(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid summary query"))
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.DailySummary(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, cacheMeta(c, cacheHit, start))
}

// Statistics godoc
// @Summary Allocation statistics for a date range
// @Tags Allocations
// @Produce json
// @Param start_date query string true "First date (YYYY-MM-DD)"
// @Param end_date query string true "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /allocations/statistics [get]
func (h *SummaryHandler) Statistics(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.StatisticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid statistics query"))
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.Statistics(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, cacheMeta(c, cacheHit, start))
}

func cacheMeta(c *gin.Context, hit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta[middleware.MetaProcessingTime] = time.Since(start).Milliseconds()
	return meta
}
