package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/internal/models"
	appErrors "github.com/noah-isme/exam-room-api/pkg/errors"
)

const (
	summaryCachePrefix = "exam-rooms:summary:"
	dailyCacheKey      = summaryCachePrefix + "daily:%s"
	statsCacheKey      = summaryCachePrefix + "stats:%s:%s"
	statsCachePattern  = summaryCachePrefix + "stats:*"
)

type summaryStore interface {
	DailyTotals(ctx context.Context, date string) (models.DailyTotals, error)
	RoomUtilization(ctx context.Context, date string) ([]models.RoomUtilization, error)
	DailyStatistics(ctx context.Context, from, to string) ([]models.DailyStatistic, error)
}

// SummaryService aggregates committed allocations into daily summaries and range statistics.
type SummaryService struct {
	store     summaryStore
	cache     *CacheService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	flight    singleflight.Group
}

// NewSummaryService constructs a summary service. cache may be nil.
func NewSummaryService(store summaryStore, cache *CacheService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *SummaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{store: store, cache: cache, ttl: ttl, validator: validate, logger: logger}
}

// DailySummary returns the aggregate of one date. The boolean reports a cache hit.
func (s *SummaryService) DailySummary(ctx context.Context, query dto.SummaryQuery) (*dto.DailySummaryResponse, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid summary query")
	}

	key := fmt.Sprintf(dailyCacheKey, query.Date)
	var cached dto.DailySummaryResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		resp, err := s.loadDaily(ctx, query.Date)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Set(ctx, key, resp, s.ttl)
		return resp, nil
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build daily summary")
	}
	return v.(*dto.DailySummaryResponse), false, nil
}

func (s *SummaryService) loadDaily(ctx context.Context, date string) (*dto.DailySummaryResponse, error) {
	var (
		totals models.DailyTotals
		rooms  []models.RoomUtilization
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.store.DailyTotals(gctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		rooms, err = s.store.RoomUtilization(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []models.RoomUtilization{}
	}
	return &dto.DailySummaryResponse{Date: date, DailyTotals: totals, Rooms: rooms}, nil
}

// Statistics returns per-day rows and a roll-up for an inclusive date range. The boolean reports a cache hit.
func (s *SummaryService) Statistics(ctx context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid statistics query")
	}
	// YYYY-MM-DD strings compare chronologically.
	if query.StartDate > query.EndDate {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")
	}

	key := fmt.Sprintf(statsCacheKey, query.StartDate, query.EndDate)
	var cached dto.StatisticsResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		rows, err := s.store.DailyStatistics(ctx, query.StartDate, query.EndDate)
		if err != nil {
			return nil, err
		}
		resp := buildStatistics(query.StartDate, query.EndDate, rows)
		_ = s.cache.Set(ctx, key, resp, s.ttl)
		return resp, nil
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build statistics")
	}
	return v.(*dto.StatisticsResponse), false, nil
}

// InvalidateDate drops cached aggregates that may include date.
func (s *SummaryService) InvalidateDate(ctx context.Context, date string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf(dailyCacheKey, date)); err != nil {
		s.logger.Warn("invalidate daily summary", zap.String("date", date), zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, statsCachePattern); err != nil {
		s.logger.Warn("invalidate statistics", zap.Error(err))
	}
}

func buildStatistics(from, to string, rows []models.DailyStatistic) *dto.StatisticsResponse {
	if rows == nil {
		rows = []models.DailyStatistic{}
	}
	rollup := dto.StatisticsRollup{Days: len(rows)}
	var utilization float64
	for _, row := range rows {
		rollup.Courses += row.Courses
		rollup.Allocations += row.Allocations
		rollup.Participants += row.Participants
		rollup.Waste += row.Waste
		utilization += row.Utilization
	}
	if len(rows) > 0 {
		rollup.AverageUtilization = roundPercent(utilization / float64(len(rows)))
	}
	return &dto.StatisticsResponse{StartDate: from, EndDate: to, Days: rows, Summary: rollup}
}
