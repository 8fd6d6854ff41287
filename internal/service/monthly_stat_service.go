package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

const (
	monthlyStatsCachePattern = "monthly_stats:*"
	monthlyStatsKeyFmt       = "monthly_stats:%04d-%02d"
)

type monthlyStatRepository interface {
	List(ctx context.Context) ([]models.MonthlyStat, error)
	Upsert(ctx context.Context, stat *models.MonthlyStat) (*models.MonthlyStat, error)
	Delete(ctx context.Context, id string) error
}

type timetableReader interface {
	List(ctx context.Context) ([]models.WeeklySlot, error)
}

type holidayReader interface {
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
}

// MonthlyStatService computes calendar statistics and manages the saved monthly records.
type MonthlyStatService struct {
	repo      monthlyStatRepository
	timetable timetableReader
	holidays  holidayReader
	cache     *CacheService
	clock     *clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMonthlyStatService constructs the service.
func NewMonthlyStatService(repo monthlyStatRepository, timetable timetableReader, holidays holidayReader, cache *CacheService, clk *clock.Clock, validate *validator.Validate, logger *zap.Logger) *MonthlyStatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	return &MonthlyStatService{
		repo:      repo,
		timetable: timetable,
		holidays:  holidays,
		cache:     cache,
		clock:     clk,
		validator: validate,
		logger:    logger,
	}
}

// Compute runs the calendar engine for a month against the current timetable and holidays.
func (s *MonthlyStatService) Compute(ctx context.Context, year, month int) (*dto.MonthlyStatsResponse, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid month %04d-%02d", year, month))
	}
	key := fmt.Sprintf(monthlyStatsKeyFmt, year, month)
	return Remember(ctx, s.cache, key, 0, func(ctx context.Context) (*dto.MonthlyStatsResponse, error) {
		return s.compute(ctx, year, month)
	})
}

func (s *MonthlyStatService) compute(ctx context.Context, year, month int) (*dto.MonthlyStatsResponse, error) {
	days, err := s.timetable.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	holidays, err := s.holidays.List(ctx, models.HolidayFilter{Year: year, Month: month})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holidays")
	}

	stats, err := ComputeMonthlyStats(year, month, PeriodsPerDay(days), holidays)
	if err != nil {
		return nil, err
	}
	return toMonthlyStatsResponse(stats, s.clock.Now()), nil
}

// ComputeCurrent computes the month containing today.
func (s *MonthlyStatService) ComputeCurrent(ctx context.Context) (*dto.MonthlyStatsResponse, error) {
	today := s.clock.Today()
	return s.Compute(ctx, today.Year(), int(today.Month()))
}

// Save records figures for a month label, replacing an existing record with the same label.
func (s *MonthlyStatService) Save(ctx context.Context, req models.SaveMonthlyStatRequest) (*models.MonthlyStat, error) {
	req.Month = strings.TrimSpace(req.Month)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid monthly stat payload")
	}
	stored, err := s.repo.Upsert(ctx, &models.MonthlyStat{
		Month:                 req.Month,
		TotalWorkingDays:      req.TotalWorkingDays,
		TotalClassesConducted: req.TotalClassesConducted,
		Notes:                 req.Notes,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save monthly stat")
	}
	s.logger.Info("monthly stat saved", zap.String("month", stored.Month), zap.Int("working_days", stored.TotalWorkingDays))
	return stored, nil
}

// SaveComputed computes a month and stores the result under its label.
func (s *MonthlyStatService) SaveComputed(ctx context.Context, year, month int, notes *string) (*models.MonthlyStat, error) {
	stats, err := s.Compute(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, models.SaveMonthlyStatRequest{
		Month:                 stats.MonthLabel,
		TotalWorkingDays:      stats.WorkingDays,
		TotalClassesConducted: stats.TotalClasses,
		Notes:                 notes,
	})
}

// List returns saved monthly records.
func (s *MonthlyStatService) List(ctx context.Context) ([]models.MonthlyStat, error) {
	stats, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list monthly stats")
	}
	if stats == nil {
		stats = []models.MonthlyStat{}
	}
	return stats, nil
}

// Delete removes a saved monthly record.
func (s *MonthlyStatService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "monthly stat not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete monthly stat")
	}
	return nil
}

func toMonthlyStatsResponse(stats *MonthlyStatsResult, computedAt time.Time) *dto.MonthlyStatsResponse {
	resp := &dto.MonthlyStatsResponse{
		Year:            stats.Year,
		Month:           stats.Month,
		MonthLabel:      stats.MonthLabel,
		DaysInMonth:     stats.DaysInMonth,
		WorkingDays:     stats.WorkingDays,
		TotalClasses:    stats.TotalClasses,
		HolidaysInMonth: stats.HolidaysInMonth,
		SundayDates:     make([]string, 0, len(stats.SundayDates)),
		HolidayDetails:  make([]dto.HolidayInMonth, 0, len(stats.HolidayDetails)),
		ComputedAt:      computedAt,
	}
	for _, d := range stats.SundayDates {
		resp.SundayDates = append(resp.SundayDates, d.Format("2006-01-02"))
	}
	for _, h := range stats.HolidayDetails {
		resp.HolidayDetails = append(resp.HolidayDetails, dto.HolidayInMonth{Date: h.Date.Format("2006-01-02"), Name: h.Name})
	}
	return resp
}

// calendarDay drops the clock component so a date is stored as the day the user picked.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
