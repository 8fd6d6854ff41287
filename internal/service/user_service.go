package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/repository"
	"github.com/classsync/classsync-api/pkg/clock"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
	"github.com/classsync/classsync-api/pkg/logger"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListStudents(ctx context.Context) ([]models.StudentRef, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	CountActiveAdmins(ctx context.Context) (int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// CreateAdminRequest provisions an administrator account.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserService is the admin-facing account directory.
type UserService struct {
	repo      userRepository
	sessions  sessionRevoker
	clock     *clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService wires the directory. sessions may be nil, in which case
// deactivated accounts keep their refresh tokens until expiry.
func NewUserService(repo userRepository, sessions sessionRevoker, clk *clock.Clock, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	return &UserService{repo: repo, sessions: sessions, clock: clk, validator: validate, logger: logger}
}

func normalizeUserFilter(f models.UserFilter) models.UserFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > maxUserPageSize {
		f.PageSize = defaultUserPageSize
	}
	if !f.Sort.Valid() {
		f.Sort, f.Desc = models.SortByCreated, true
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	filter = normalizeUserFilter(filter)
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListStudents returns active students by roll number.
func (s *UserService) ListStudents(ctx context.Context) ([]models.StudentRef, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentRef{}
	}
	return students, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// CreateAdmin adds an administrator. actorID is empty when run from the CLI.
func (s *UserService) CreateAdmin(ctx context.Context, req CreateAdminRequest, actorID string) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	switch _, err := s.repo.FindByEmail(ctx, req.Email); {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := s.clock.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         models.RoleAdmin,
		Active:       true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.record(ctx, actorID, models.AuditActionCreate, user.ID, nil, map[string]interface{}{"email": user.Email, "role": user.Role})
	logger.FromContext(ctx, s.logger).Info("admin created", zap.String("user_id", user.ID), zap.String("actor", actorID))
	return user, nil
}

// Update renames or (de)activates an account. Admins cannot deactivate
// themselves and the last active admin cannot be deactivated. Deactivation
// revokes every refresh session of the account.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	deactivating := req.Active != nil && !*req.Active
	if deactivating && id == actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot deactivate your own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deactivating && user.IsActiveAdmin() {
		admins, err := s.repo.CountActiveAdmins(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count admins")
		}
		if admins <= 1 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cannot deactivate the last active admin")
		}
	}

	before := map[string]interface{}{"full_name": user.FullName, "active": user.Active}
	wasActive := user.Active
	if req.FullName != nil {
		user.FullName = strings.Join(strings.Fields(*req.FullName), " ")
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	now := s.clock.Now().UTC()
	user.UpdatedAt = now
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if wasActive && !user.Active && s.sessions != nil {
		revoked, err := s.sessions.RevokeUser(ctx, user.ID, now)
		if err != nil {
			logger.FromContext(ctx, s.logger).Warn("failed to revoke sessions of deactivated user", zap.String("user_id", user.ID), zap.Error(err))
		} else if revoked > 0 {
			logger.FromContext(ctx, s.logger).Info("sessions revoked", zap.String("user_id", user.ID), zap.Int64("count", revoked))
		}
	}
	s.record(ctx, actorID, models.AuditActionUpdate, user.ID, before, map[string]interface{}{"full_name": user.FullName, "active": user.Active})
	return user, nil
}

func (s *UserService) record(ctx context.Context, actorID, action, userID string, before, after map[string]interface{}) {
	entry := &models.AuditLog{Action: action, Resource: "users", ResourceID: &userID}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	entry.NewValues, _ = json.Marshal(after)
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}
