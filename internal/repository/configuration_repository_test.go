package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
)

func newConfigurationRepo(t *testing.T) (*ConfigurationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewConfigurationRepository(sqlx.NewDb(db, "postgres")), mock
}

var configurationCols = []string{"key", "value", "type", "description", "updated_by", "updated_at"}

func TestConfigurationRepositoryListByKeys(t *testing.T) {
	repo, mock := newConfigurationRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE key = ANY($1)")).
		WithArgs(pq.Array([]string{"class.name", "class.academic_year"})).
		WillReturnRows(sqlmock.NewRows(configurationCols).
			AddRow("class.name", "CSE-A", "STRING", "desc", nil, time.Now()))

	result, err := repo.ListByKeys(context.Background(), []string{"class.name", "class.academic_year"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "CSE-A", result[0].Value)
	assert.Nil(t, result[0].UpdatedBy)
	require.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.ListByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConfigurationRepositorySaveIsTransactional(t *testing.T) {
	repo, mock := newConfigurationRepo(t)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	admin := "admin-1"

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO configurations")
	prep.ExpectExec().
		WithArgs("class.name", "CSE-A", models.ConfigurationTypeString, nil, &admin, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("notifications.notices", "false", models.ConfigurationTypeBoolean, nil, &admin, at).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	entries := []models.Configuration{
		{Key: "class.name", Value: "CSE-A", Type: models.ConfigurationTypeString, UpdatedBy: &admin},
		{Key: "notifications.notices", Value: "false", Type: models.ConfigurationTypeBoolean, UpdatedBy: &admin},
	}
	err := repo.Save(context.Background(), entries, at)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "notifications.notices")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositorySaveCommits(t *testing.T) {
	repo, mock := newConfigurationRepo(t)
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO configurations").ExpectExec().
		WithArgs("class.academic_year", "2025-26", models.ConfigurationTypeString, nil, nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entries := []models.Configuration{{Key: "class.academic_year", Value: "2025-26", Type: models.ConfigurationTypeString}}
	require.NoError(t, repo.Save(context.Background(), entries, at))
	assert.Equal(t, at, entries[0].UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryDelete(t *testing.T) {
	repo, mock := newConfigurationRepo(t)

	mock.ExpectExec("DELETE FROM configurations").WithArgs("class.name").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM configurations").WithArgs("class.name").WillReturnResult(sqlmock.NewResult(0, 0))

	existed, err := repo.Delete(context.Background(), "class.name")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(context.Background(), "class.name")
	require.NoError(t, err)
	assert.False(t, existed)
}
