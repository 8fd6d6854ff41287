package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) ListStudents(ctx context.Context) ([]models.StudentRef, error) {
	var out []models.StudentRef
	for _, u := range m.users {
		if u.Role == models.RoleStudent && u.RollNumber != nil {
			out = append(out, models.StudentRef{ID: u.ID, RollNumber: *u.RollNumber, FullName: u.FullName, Email: u.Email})
		}
	}
	return out, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		found := *user
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) CountActiveAdmins(ctx context.Context) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.IsActiveAdmin() {
			n++
		}
	}
	return n, nil
}

type revokerStub struct {
	revoked []string
}

func (r *revokerStub) RevokeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	r.revoked = append(r.revoked, userID)
	return 2, nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestUserServiceCreateAdmin(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil, validator.New(), zap.NewNop())

	user, err := svc.CreateAdmin(context.Background(), CreateAdminRequest{Email: "Admin@Example.com", FullName: "Head", Password: "supersecret"}, "")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.Active)
	require.Len(t, repo.auditLogs, 1)
	assert.Nil(t, repo.auditLogs[0].UserID)

	_, err = svc.CreateAdmin(context.Background(), CreateAdminRequest{Email: "admin@example.com", FullName: "Again", Password: "supersecret"}, "")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateAdmin(context.Background(), CreateAdminRequest{Email: "bad", FullName: "X", Password: "short"}, "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "admin", Email: "admin@example.com", Role: models.RoleAdmin, Active: true},
		&models.User{ID: "s1", Email: "s1@example.com", FullName: "Old", Role: models.RoleStudent, Active: true},
	)
	sessions := &revokerStub{}
	at := time.Date(2025, 8, 4, 10, 0, 0, 0, time.UTC)
	svc := NewUserService(repo, sessions, clock.WithNow(time.UTC, func() time.Time { return at }), validator.New(), zap.NewNop())
	inactive := false
	name := "  New   Name "

	updated, err := svc.Update(context.Background(), "s1", models.UpdateUserRequest{FullName: &name, Active: &inactive}, "admin")
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "New Name", repo.users["s1"].FullName)
	assert.Equal(t, at, repo.users["s1"].UpdatedAt)
	assert.Equal(t, []string{"s1"}, sessions.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.JSONEq(t, `{"full_name":"Old","active":true}`, string(repo.auditLogs[0].OldValues))

	_, err = svc.Update(context.Background(), "s1", models.UpdateUserRequest{Active: &inactive}, "admin")
	require.NoError(t, err)
	assert.Len(t, sessions.revoked, 1, "already inactive accounts are not revoked again")

	_, err = svc.Update(context.Background(), "admin", models.UpdateUserRequest{Active: &inactive}, "admin")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "ghost", models.UpdateUserRequest{Active: &inactive}, "admin")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceKeepsLastAdmin(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "a1", Role: models.RoleAdmin, Active: true},
		&models.User{ID: "a2", Role: models.RoleAdmin, Active: true},
	)
	svc := NewUserService(repo, nil, nil, nil, nil)
	inactive := false

	_, err := svc.Update(context.Background(), "a2", models.UpdateUserRequest{Active: &inactive}, "a1")
	require.NoError(t, err)

	repo.users["a3"] = &models.User{ID: "a3", Role: models.RoleAdmin, Active: false}
	_, err = svc.Update(context.Background(), "a1", models.UpdateUserRequest{Active: &inactive}, "a3")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.users["a1"].Active)
}

func TestUserServiceListDefaultsPagination(t *testing.T) {
	roll := "CS-01"
	repo := newMockUserRepo(&models.User{ID: "s1", Role: models.RoleStudent, RollNumber: &roll})
	svc := NewUserService(repo, nil, nil, validator.New(), zap.NewNop())

	users, pagination, err := svc.List(context.Background(), models.UserFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)

	students, err := svc.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "CS-01", students[0].RollNumber)
}
