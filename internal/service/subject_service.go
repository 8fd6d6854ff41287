package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/repository"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, query string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	UpdateCode(ctx context.Context, id string, code *string) error
	Delete(ctx context.Context, id string) error
}

// SubjectService manages the subject registry. Removing a subject leaves its
// attendance counters in place.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// normalizeCode trims and uppercases a code; blank codes become nil.
func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*code))
	if v == "" {
		return nil
	}
	return &v
}

func (s *SubjectService) List(ctx context.Context, query string) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

// Create registers a subject. Names are unique ignoring case; codes are unique
// once uppercased.
func (s *SubjectService) Create(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	req.Name = strings.Join(strings.Fields(req.Name), " ")
	req.Code = normalizeCode(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	switch _, err := s.repo.FindByName(ctx, req.Name); {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name")
	}

	subject := &models.Subject{Name: req.Name, Code: req.Code}
	if err := s.repo.Create(ctx, subject); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject name or code already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Info("subject created", zap.String("subject", subject.Name), zap.String("id", subject.ID))
	return subject, nil
}

// UpdateCode replaces the short code of a subject.
func (s *SubjectService) UpdateCode(ctx context.Context, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	req.Code = normalizeCode(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if err := s.repo.UpdateCode(ctx, id, req.Code); err != nil {
		return nil, s.mapWriteErr(err, "failed to update subject")
	}
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapWriteErr(err, "failed to load subject")
	}
	return subject, nil
}

func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapWriteErr(err, "failed to delete subject")
	}
	s.logger.Info("subject deleted", zap.String("id", id))
	return nil
}

func (s *SubjectService) mapWriteErr(err error, msg string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "subject code already in use")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}
}
