package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "roll_number", "role", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "user@example.com", "hash", "User", nil, string(models.RoleAdmin), true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Nil(t, user.RollNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1 AND (email ILIKE $2 OR full_name ILIKE $2 OR roll_number ILIKE $2)")).
		WithArgs(models.RoleStudent, "%21cs%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	now := time.Now()
	listRows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "a@example.com", "hash", "A", "21CS001", string(models.RoleStudent), true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY roll_number ASC, id LIMIT 20 OFFSET 40")).
		WithArgs(models.RoleStudent, "%21cs%").
		WillReturnRows(listRows)

	role := models.RoleStudent
	users, total, err := repo.List(context.Background(), models.UserFilter{
		Role: &role, Search: "21cs", Page: 3, PageSize: 20, Sort: models.SortByRoll,
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "21CS001", *users[0].RollNumber)
	assert.Equal(t, 41, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersSkipsPageQueryWhenEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	users, total, err := repo.List(context.Background(), models.UserFilter{Page: 1, PageSize: 20, Sort: "password_hash"})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET full_name").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &models.User{ID: "ghost", FullName: "G"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudentClaimsAllowList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	roll := "21CS007"
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE allowed_students SET claimed_by = $1 WHERE roll_number = $2 AND claimed_by IS NULL")).
		WithArgs(sqlmock.AnyArg(), roll).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{Email: "s@example.com", FullName: "S", RollNumber: &roll, Role: models.RoleStudent, Active: true}
	require.NoError(t, repo.CreateStudent(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudentRollsBackWhenAlreadyClaimed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	roll := "21CS007"
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE allowed_students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateStudent(context.Background(), &models.User{Email: "s@example.com", RollNumber: &roll, Role: models.RoleStudent})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStudentsByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "roll_number", "full_name", "email"}).
		AddRow("s1", "21CS001", "Asha", "asha@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = 'STUDENT' AND id = ANY($1)")).WillReturnRows(rows)

	students, err := repo.FindStudentsByIDs(context.Background(), []string{"s1", "ghost"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "21CS001", students[0].RollNumber)

	empty, err := repo.FindStudentsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
