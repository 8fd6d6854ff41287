package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
)

func TestMonthlyStatRepositoryUpsertByMonthLabel(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMonthlyStatRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "month", "total_working_days", "total_classes_conducted", "notes", "created_at", "updated_at"}).
		AddRow("existing", "February 2024", 24, 118, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (month)")).
		WithArgs(sqlmock.AnyArg(), "February 2024", 24, 118, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.MonthlyStat{Month: "February 2024", TotalWorkingDays: 24, TotalClassesConducted: 118})
	require.NoError(t, err)
	assert.Equal(t, "existing", stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
