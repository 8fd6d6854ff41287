package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type holidayRepository interface {
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

// HolidayService manages calendar entries that feed the monthly statistics.
type HolidayService struct {
	repo      holidayRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs the service.
func NewHolidayService(repo holidayRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &HolidayService{repo: repo, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("holiday_type", func(fl validator.FieldLevel) bool {
		return models.HolidayType(fl.Field().String()).Valid()
	})
	return svc
}

// List returns calendar entries ordered by date.
func (s *HolidayService) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if filter.Month > 0 && filter.Year == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month filter requires a year")
	}
	holidays, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	if holidays == nil {
		holidays = []models.Holiday{}
	}
	return holidays, nil
}

// Create stores a holiday or event. The date is kept as a calendar day.
func (s *HolidayService) Create(ctx context.Context, req models.CreateHolidayRequest) (*models.Holiday, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	holiday := &models.Holiday{
		Name: req.Name,
		Date: calendarDay(req.Date),
		Type: req.Type,
	}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	s.invalidateMonthlyStats(ctx)
	s.logger.Info("holiday created", zap.String("id", holiday.ID), zap.String("date", holiday.Date.Format("2006-01-02")))
	return holiday, nil
}

// Delete removes a calendar entry.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	s.invalidateMonthlyStats(ctx)
	return nil
}

func (s *HolidayService) invalidateMonthlyStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, monthlyStatsCachePattern); err != nil {
		s.logger.Warn("monthly stats cache invalidation failed", zap.Error(err))
	}
}
