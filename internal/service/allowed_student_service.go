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

type allowedStudentRepository interface {
	List(ctx context.Context) ([]models.AllowedStudent, error)
	BulkUpsert(ctx context.Context, entries []models.AllowedStudent) error
	Delete(ctx context.Context, id string) error
}

// AllowedStudentService maintains the registration allow list.
type AllowedStudentService struct {
	repo      allowedStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAllowedStudentService constructs the service.
func NewAllowedStudentService(repo allowedStudentRepository, validate *validator.Validate, logger *zap.Logger) *AllowedStudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllowedStudentService{repo: repo, validator: validate, logger: logger}
}

// List returns the allow list ordered by roll number.
func (s *AllowedStudentService) List(ctx context.Context) ([]models.AllowedStudent, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allowed students")
	}
	if entries == nil {
		entries = []models.AllowedStudent{}
	}
	return entries, nil
}

// Add upserts the given roll numbers. A roll number repeated in one request is rejected.
func (s *AllowedStudentService) Add(ctx context.Context, req models.CreateAllowedStudentsRequest) ([]models.AllowedStudent, error) {
	for i := range req.Students {
		req.Students[i].RollNumber = strings.ToUpper(strings.TrimSpace(req.Students[i].RollNumber))
		req.Students[i].FullName = strings.TrimSpace(req.Students[i].FullName)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allow list payload")
	}

	seen := make(map[string]struct{}, len(req.Students))
	entries := make([]models.AllowedStudent, 0, len(req.Students))
	for _, input := range req.Students {
		if _, dup := seen[input.RollNumber]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate roll number "+input.RollNumber)
		}
		seen[input.RollNumber] = struct{}{}
		entries = append(entries, models.AllowedStudent{RollNumber: input.RollNumber, FullName: input.FullName})
	}

	if err := s.repo.BulkUpsert(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save allowed students")
	}
	s.logger.Info("allow list updated", zap.Int("count", len(entries)))
	return entries, nil
}

// Delete removes an allow list entry.
func (s *AllowedStudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "allowed student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete allowed student")
	}
	return nil
}
