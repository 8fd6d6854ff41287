package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type timetableRepository interface {
	List(ctx context.Context) ([]models.WeeklySlot, error)
	Upsert(ctx context.Context, day *models.WeeklySlot) error
	Delete(ctx context.Context, day string) error
}

// TimetableService maintains the weekly class schedule.
type TimetableService struct {
	repo      timetableRepository
	cache     *CacheService
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs the service.
func NewTimetableService(repo timetableRepository, cache *CacheService, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TimetableService{repo: repo, cache: cache, notifier: notifier, validator: validate, logger: logger}
	svc.validator.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseTeachingDay(fl.Field().String())
		return ok
	})
	return svc
}

// Week returns Monday through Saturday in order. Days without an entry carry no slots.
func (s *TimetableService) Week(ctx context.Context) ([]models.WeeklySlot, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	byDay := make(map[string]models.WeeklySlot, len(stored))
	for _, day := range stored {
		if wd, ok := models.ParseTeachingDay(day.Day); ok {
			byDay[wd.String()] = day
		}
	}
	week := make([]models.WeeklySlot, 0, len(models.TeachingDays))
	for _, wd := range models.TeachingDays {
		day, ok := byDay[wd.String()]
		if !ok {
			day = models.WeeklySlot{Day: wd.String()}
		}
		if day.Slots == nil {
			day.Slots = []models.ClassSlot{}
		}
		week = append(week, day)
	}
	return week, nil
}

// UpsertDay replaces the periods of one teaching day.
func (s *TimetableService) UpsertDay(ctx context.Context, req models.UpsertTimetableDayRequest) (*models.WeeklySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	wd, _ := models.ParseTeachingDay(req.Day)
	slots := make([]models.ClassSlot, 0, len(req.Slots))
	for _, slot := range req.Slots {
		slot.Subject = strings.TrimSpace(slot.Subject)
		slots = append(slots, slot)
	}
	day := &models.WeeklySlot{Day: wd.String(), Slots: slots}
	if err := s.repo.Upsert(ctx, day); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	s.changed(ctx, fmt.Sprintf("%s now has %d classes.", day.Day, len(day.Slots)))
	return day, nil
}

// DeleteDay clears one teaching day.
func (s *TimetableService) DeleteDay(ctx context.Context, raw string) error {
	wd, ok := models.ParseTeachingDay(raw)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is not a teaching day", raw))
	}
	if err := s.repo.Delete(ctx, wd.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable day not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable day")
	}
	s.changed(ctx, fmt.Sprintf("Classes on %s were removed.", wd.String()))
	return nil
}

func (s *TimetableService) changed(ctx context.Context, body string) {
	if err := s.cache.Invalidate(ctx, monthlyStatsCachePattern); err != nil {
		s.logger.Warn("monthly stats cache invalidation failed", zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, Notification{Kind: NotificationTimetable, Subject: "Timetable updated", Body: body})
	}
}
