package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

// AssignmentService manages homework postings.
type AssignmentService struct {
	repo      assignmentRepository
	notifier  Notifier
	clock     *clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentRepository, notifier Notifier, clk *clock.Clock, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(nil)
	}
	return &AssignmentService{repo: repo, notifier: notifier, clock: clk, validator: validate, logger: logger}
}

// List returns assignments by due date. upcomingOnly hides those already past due.
func (s *AssignmentService) List(ctx context.Context, subject string, upcomingOnly bool) ([]models.Assignment, error) {
	filter := models.AssignmentFilter{Subject: strings.TrimSpace(subject), UpcomingOnly: upcomingOnly}
	if upcomingOnly {
		filter.Now = s.clock.Today()
	}
	assignments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	return assignments, nil
}

// Create posts an assignment and notifies the class.
func (s *AssignmentService) Create(ctx context.Context, req models.CreateAssignmentRequest, authorID string) (*models.Assignment, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment := &models.Assignment{
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		DueDate:     req.DueDate,
		CreatedBy:   authorID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, Notification{
			Kind:    NotificationAssignment,
			Subject: "Assignment: " + assignment.Title,
			Body:    assignment.Subject + " assignment due " + assignment.DueDate.In(s.clock.Location()).Format("02 Jan 2006"),
		})
	}
	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
