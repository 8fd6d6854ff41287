package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
)

func TestHolidayRepositoryListByMonth(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "date", "type", "created_at"}).
		AddRow("h1", "Republic Day", time.Date(2024, 1, 26, 0, 0, 0, 0, time.UTC), "Holiday", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND EXTRACT(YEAR FROM date) = $1 AND EXTRACT(MONTH FROM date) = $2 ORDER BY date ASC")).
		WithArgs(2024, 1).
		WillReturnRows(rows)

	holidays, err := repo.List(context.Background(), models.HolidayFilter{Year: 2024, Month: 1})
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, models.HolidayTypeHoliday, holidays[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryListIgnoresMonthWithoutYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM holidays WHERE 1=1 ORDER BY date ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "type", "created_at"}))

	_, err := repo.List(context.Background(), models.HolidayFilter{Month: 4})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectExec("DELETE FROM holidays").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), sql.ErrNoRows)
}
