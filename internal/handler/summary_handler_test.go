package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/internal/middleware"
	"github.com/noah-isme/exam-room-api/internal/models"
	appErrors "github.com/noah-isme/exam-room-api/pkg/errors"
)

type summaryServiceMock struct {
	hit        bool
	dailyQuery dto.SummaryQuery
	statsQuery dto.StatisticsQuery
	err        error
}

func (m *summaryServiceMock) DailySummary(_ context.Context, query dto.SummaryQuery) (*dto.DailySummaryResponse, bool, error) {
	m.dailyQuery = query
	if m.err != nil {
		return nil, false, m.err
	}
	return &dto.DailySummaryResponse{Date: query.Date, DailyTotals: models.DailyTotals{Courses: 2}, Rooms: []models.RoomUtilization{}}, m.hit, nil
}

func (m *summaryServiceMock) Statistics(_ context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, bool, error) {
	m.statsQuery = query
	if m.err != nil {
		return nil, false, m.err
	}
	return &dto.StatisticsResponse{StartDate: query.StartDate, EndDate: query.EndDate, Days: []models.DailyStatistic{}}, m.hit, nil
}

func newSummaryRouter(svc *summaryServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	NewSummaryHandler(svc).Register(router.Group("/api/v1"))
	return router
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSummaryDailyReportsCacheHit(t *testing.T) {
	svc := &summaryServiceMock{hit: true}
	router := newSummaryRouter(svc)

	w := getPath(router, "/api/v1/allocations/summary?date=2024-06-10")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-10", svc.dailyQuery.Date)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["courses"])
}

func TestSummaryStatisticsBindsRange(t *testing.T) {
	svc := &summaryServiceMock{}
	router := newSummaryRouter(svc)

	w := getPath(router, "/api/v1/allocations/statistics?start_date=2024-06-01&end_date=2024-06-30")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.StatisticsQuery{StartDate: "2024-06-01", EndDate: "2024-06-30"}, svc.statsQuery)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["meta"].(map[string]interface{})["cache_hit"])
}

func TestSummaryStatisticsValidationError(t *testing.T) {
	svc := &summaryServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")}
	router := newSummaryRouter(svc)

	w := getPath(router, "/api/v1/allocations/statistics?start_date=2024-06-30&end_date=2024-06-01")

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummaryHandlerWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &SummaryHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/allocations/summary?date=2024-06-10", nil)

	handler.Daily(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
