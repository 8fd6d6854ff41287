package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

const defaultAuditLimit = 100

type auditReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// AuditService exposes the audit trail to administrators.
type AuditService struct {
	repo   auditReader
	logger *zap.Logger
}

func NewAuditService(repo auditReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// List returns matching entries newest first. An inverted time window is a
// validation error.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	if filter.Since != nil && filter.Until != nil && !filter.Since.Before(*filter.Until) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "since must be before until")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	filter.Action = strings.ToUpper(strings.TrimSpace(filter.Action))
	filter.Resource = strings.TrimSpace(filter.Resource)

	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// parseAuditTime accepts RFC3339 timestamps or a bare YYYY-MM-DD date in loc.
func parseAuditTime(raw string, loc *time.Location) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timestamps must be RFC3339 or YYYY-MM-DD")
	}
	return &t, nil
}

// AuditQuery is the raw query-string form of an AuditFilter.
type AuditQuery struct {
	UserID, Action, Resource, Since, Until string
	Limit                                  int
}

// ParseAuditQuery turns query-string values into a filter, reading bare
// dates in loc.
func ParseAuditQuery(q AuditQuery, loc *time.Location) (models.AuditFilter, error) {
	if loc == nil {
		loc = time.UTC
	}
	filter := models.AuditFilter{UserID: q.UserID, Action: q.Action, Resource: q.Resource, Limit: q.Limit}
	var err error
	if filter.Since, err = parseAuditTime(q.Since, loc); err != nil {
		return filter, err
	}
	if filter.Until, err = parseAuditTime(q.Until, loc); err != nil {
		return filter, err
	}
	return filter, nil
}
