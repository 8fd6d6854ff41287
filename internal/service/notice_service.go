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

type noticeRepository interface {
	List(ctx context.Context, page, size int) ([]models.Notice, int, error)
	Create(ctx context.Context, notice *models.Notice) error
	Delete(ctx context.Context, id string) error
}

// NoticeService runs the class notice board.
type NoticeService struct {
	repo      noticeRepository
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoticeService constructs the service.
func NewNoticeService(repo noticeRepository, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// List returns a page of notices, high priority first.
func (s *NoticeService) List(ctx context.Context, page, size int) ([]models.Notice, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	notices, total, err := s.repo.List(ctx, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	return notices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create posts a notice and emails the class.
func (s *NoticeService) Create(ctx context.Context, req models.CreateNoticeRequest, authorID string) (*models.Notice, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	if req.Priority == "" {
		req.Priority = models.NoticePriorityNormal
	}
	notice := &models.Notice{Title: req.Title, Content: req.Content, Priority: req.Priority, CreatedBy: authorID}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, Notification{Kind: NotificationNotice, Subject: "Notice: " + notice.Title, Body: notice.Content})
	}
	return notice, nil
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	return nil
}
