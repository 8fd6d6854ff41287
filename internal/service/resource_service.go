package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/storage"
)

type resourceRepository interface {
	List(ctx context.Context, subject string) ([]models.Resource, error)
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id string) error
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

// ResourceOptions bounds uploads.
type ResourceOptions struct {
	MaxFileSizeBytes int64
}

// ResourceService manages shared study materials.
type ResourceService struct {
	repo      resourceRepository
	files     fileStore
	signer    *storage.DownloadSigner
	notifier  Notifier
	opts      ResourceOptions
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService constructs the service.
func NewResourceService(repo resourceRepository, files fileStore, signer *storage.DownloadSigner, notifier Notifier, opts ResourceOptions, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFileSizeBytes <= 0 {
		opts.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	return &ResourceService{repo: repo, files: files, signer: signer, notifier: notifier, opts: opts, validator: validate, logger: logger}
}

// MaxFileSize reports the upload limit in bytes.
func (s *ResourceService) MaxFileSize() int64 {
	return s.opts.MaxFileSizeBytes
}

// List returns resources newest first, optionally filtered by subject.
func (s *ResourceService) List(ctx context.Context, subject string) ([]models.Resource, error) {
	resources, err := s.repo.List(ctx, strings.TrimSpace(subject))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	if resources == nil {
		resources = []models.Resource{}
	}
	return resources, nil
}

// CreateLink shares an external URL.
func (s *ResourceService) CreateLink(ctx context.Context, req models.CreateLinkResourceRequest, authorID string) (*models.Resource, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}
	url := req.URL
	resource := &models.Resource{
		Title:     req.Title,
		Subject:   trimmedOrNil(req.Subject),
		Kind:      models.ResourceKindLink,
		URL:       &url,
		CreatedBy: authorID,
	}
	if err := s.repo.Create(ctx, resource); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}
	s.announce(ctx, resource)
	return resource, nil
}

// Upload stores a file and records it as a resource.
func (s *ResourceService) Upload(ctx context.Context, req models.UploadResourceRequest, authorID string) (*models.Resource, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	size := int64(len(req.Content))
	if size == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "uploaded file is empty")
	}
	if size > s.opts.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds the %d byte limit", s.opts.MaxFileSizeBytes))
	}

	id := uuid.NewString()
	fileName := path.Base(strings.ReplaceAll(req.FileName, "\\", "/"))
	storedPath, err := s.files.Save(path.Join("resources", id, fileName), req.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	resource := &models.Resource{
		ID:          id,
		Title:       req.Title,
		Subject:     trimmedOrNil(req.Subject),
		Kind:        models.ResourceKindFile,
		StoragePath: &storedPath,
		FileName:    &fileName,
		SizeBytes:   &size,
		CreatedBy:   authorID,
	}
	if req.MimeType != "" {
		mime := req.MimeType
		resource.MimeType = &mime
	}
	if err := s.repo.Create(ctx, resource); err != nil {
		if delErr := s.files.Delete(storedPath); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", storedPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}
	s.announce(ctx, resource)
	return resource, nil
}

// DownloadURL issues a short-lived token for a stored file.
func (s *ResourceService) DownloadURL(ctx context.Context, id, baseURL string) (*models.ResourceDownload, error) {
	resource, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if resource.Kind == models.ResourceKindLink && resource.URL != nil {
		return &models.ResourceDownload{URL: *resource.URL}, nil
	}
	if resource.StoragePath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource has no stored file")
	}
	token, expiresAt, err := s.signer.Sign(resource.ID, *resource.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &models.ResourceDownload{URL: strings.TrimRight(baseURL, "/") + "/" + token, ExpiresAt: expiresAt}, nil
}

// Open resolves a download token to the stored file. The caller closes it.
func (s *ResourceService) Open(ctx context.Context, token string) (*os.File, *models.Resource, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	storedPath := claims.Path
	resource, err := s.get(ctx, claims.ResourceID())
	if err != nil {
		return nil, nil, err
	}
	if resource.StoragePath == nil || *resource.StoragePath != storedPath {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	file, err := s.files.Open(storedPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "stored file missing")
	}
	return file, resource, nil
}

// Delete removes the resource and its stored file.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	resource, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	if resource.StoragePath != nil {
		if err := s.files.Delete(*resource.StoragePath); err != nil {
			s.logger.Warn("failed to remove stored file", zap.String("path", *resource.StoragePath), zap.Error(err))
		}
	}
	return nil
}

func (s *ResourceService) get(ctx context.Context, id string) (*models.Resource, error) {
	resource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return resource, nil
}

func (s *ResourceService) announce(ctx context.Context, resource *models.Resource) {
	if s.notifier == nil {
		return
	}
	body := resource.Title
	if resource.Subject != nil {
		body = *resource.Subject + ": " + body
	}
	s.notifier.Notify(ctx, Notification{Kind: NotificationResource, Subject: "New study resource", Body: body})
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
