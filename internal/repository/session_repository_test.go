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

var sessionRowColumns = []string{"id", "user_id", "family_id", "token_hash", "expires_at", "created_at", "revoked_at", "replaced_by", "ip_address", "user_agent"}

func TestSessionCreateDefaultsFamily(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO refresh_sessions").WillReturnResult(sqlmock.NewResult(0, 1))

	s := &models.RefreshSession{UserID: "u1", TokenHash: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, s.ID, s.FamilyID)
	assert.False(t, s.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFindByHash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_sessions WHERE token_hash = $1")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow("s1", "u1", "f1", "abc", now.Add(time.Hour), now, nil, nil, "127.0.0.1", "curl"))

	s, err := repo.FindByHash(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "f1", s.FamilyID)
	assert.True(t, s.Usable(now))

	mock.ExpectQuery("FROM refresh_sessions").WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRotate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO refresh_sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_sessions SET revoked_at = $2, replaced_by = $3 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("s1", sqlmock.AnyArg(), "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next := &models.RefreshSession{ID: "s2", UserID: "u1", FamilyID: "f1", TokenHash: "def", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Rotate(context.Background(), "s1", next))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRotateLosesRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO refresh_sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_sessions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	next := &models.RefreshSession{ID: "s3", UserID: "u1", FamilyID: "f1", TokenHash: "ghi"}
	err := repo.Rotate(context.Background(), "s1", next)
	assert.ErrorIs(t, err, ErrSessionRotated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRevokeFamilyAndPrune(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("WHERE family_id = $1 AND revoked_at IS NULL")).
		WithArgs("f1", now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := repo.RevokeFamily(context.Background(), "f1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec("DELETE FROM refresh_sessions").WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 7))
	n, err = repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
