package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type auditReaderStub struct {
	got models.AuditFilter
}

func (a *auditReaderStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	a.got = filter
	return []models.AuditLog{{ID: "l1", Action: filter.Action}}, nil
}

func TestAuditServiceList(t *testing.T) {
	repo := &auditReaderStub{}
	svc := NewAuditService(repo, nil)

	logs, err := svc.List(context.Background(), models.AuditFilter{Action: " delete "})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "DELETE", repo.got.Action)
	assert.Equal(t, defaultAuditLimit, repo.got.Limit)

	since := time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC)
	until := since.Add(-time.Hour)
	_, err = svc.List(context.Background(), models.AuditFilter{Since: &since, Until: &until})
	requireAppErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestParseAuditQuery(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	filter, err := ParseAuditQuery(AuditQuery{Since: "2025-08-01", Until: "2025-08-02T00:00:00Z", Limit: 5}, ist)
	require.NoError(t, err)
	require.NotNil(t, filter.Since)
	assert.Equal(t, time.Date(2025, 7, 31, 18, 30, 0, 0, time.UTC), filter.Since.UTC())
	assert.Equal(t, 5, filter.Limit)

	_, err = ParseAuditQuery(AuditQuery{Since: "yesterday"}, nil)
	requireAppErrorCode(t, err, appErrors.ErrValidation.Code)
}
