package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
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
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	CreateStudent(ctx context.Context, user *models.User) error
}

type sessionStore interface {
	Create(ctx context.Context, s *models.RefreshSession) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshSession, error)
	Rotate(ctx context.Context, currentID string, next *models.RefreshSession) error
	RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error)
	RevokeUser(ctx context.Context, userID string, at time.Time) (int64, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]models.RefreshSession, error)
}

type allowListReader interface {
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.AllowedStudent, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	// SingleSession signs a user out everywhere else on login.
	SingleSession bool
	Clock         *clock.Clock
}

// AuthService provides authentication use cases.
type AuthService struct {
	users     authUserRepository
	sessions  sessionStore
	allowList allowListReader
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	clock     *clock.Clock
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions sessionStore, allowList allowListReader, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		allowList: allowList,
		validator: validate,
		logger:    logger,
		config:    config,
		clock:     clk,
	}
}

func (s *AuthService) now() time.Time {
	return s.clock.Now().UTC()
}

// Register creates a student account for a roll number on the allow list and signs them in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, meta models.ClientMeta) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.RollNumber = strings.ToUpper(strings.TrimSpace(req.RollNumber))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	entry, err := s.allowList.FindByRollNumber(ctx, req.RollNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotAllowed, fmt.Sprintf("roll number %s is not on the registration list", req.RollNumber))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration list")
	}
	if entry.ClaimedBy != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roll number is already registered")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	roll := req.RollNumber
	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		RollNumber:   &roll,
		Role:         models.RoleStudent,
		Active:       true,
	}
	// CreateStudent claims the allow-list row in the same transaction and
	// reports sql.ErrNoRows when a concurrent registration won.
	if err := s.users.CreateStudent(ctx, user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrConflict, "roll number is already registered")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or roll number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	s.audit(ctx, user.ID, models.AuditActionRegister, meta, map[string]string{"roll_number": roll})
	s.logger.Info("student registered", zap.String("user_id", user.ID), zap.String("roll_number", roll))

	return s.startSession(ctx, user, meta)
}

// Login authenticates a user and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if s.config.SingleSession {
		if _, err := s.sessions.RevokeUser(ctx, user.ID, s.now()); err != nil {
			s.logger.Warn("failed to revoke previous sessions", zap.Error(err))
		}
	}

	resp, err := s.startSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, resp.IssuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, meta, nil)
	return resp, nil
}

// startSession opens a new refresh family for user.
func (s *AuthService) startSession(ctx context.Context, user *models.User, meta models.ClientMeta) (*models.LoginResponse, error) {
	now := s.now()
	token, hash, err := newRefreshToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	id := uuid.NewString()
	session := &models.RefreshSession{
		ID:        id,
		UserID:    user.ID,
		FamilyID:  id,
		TokenHash: hash,
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	pair, err := s.tokenPair(user, token, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{TokenPair: pair, User: userInfo(user)}, nil
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes its whole family, since one of the two holders is not
// the legitimate client.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest, meta models.ClientMeta) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}
	current, err := s.lookupSession(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if current.RevokedAt != nil {
		revoked, err := s.sessions.RevokeFamily(ctx, current.FamilyID, now)
		if err != nil {
			s.logger.Error("failed to revoke reused session family", zap.String("family_id", current.FamilyID), zap.Error(err))
		}
		s.logger.Warn("refresh token reuse detected",
			zap.String("user_id", current.UserID), zap.String("family_id", current.FamilyID), zap.Int64("revoked", revoked))
		s.audit(ctx, current.UserID, models.AuditActionTokenReuse, meta, map[string]string{"family_id": current.FamilyID})
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token reuse detected; sign in again")
	}
	if !current.Usable(now) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token expired")
	}

	user, err := s.users.FindByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	token, hash, err := newRefreshToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	next := &models.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FamilyID:  current.FamilyID,
		TokenHash: hash,
		// Rotation keeps the family's original lifetime.
		ExpiresAt: current.ExpiresAt,
		CreatedAt: now,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.sessions.Rotate(ctx, current.ID, next); err != nil {
		if errors.Is(err, repository.ErrSessionRotated) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session")
	}

	pair, err := s.tokenPair(user, token, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Debug("refresh token rotated", zap.String("user_id", user.ID), zap.String("family_id", current.FamilyID))
	return &pair, nil
}

func (s *AuthService) lookupSession(ctx context.Context, token string) (*models.RefreshSession, error) {
	session, err := s.sessions.FindByHash(ctx, hashRefreshToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not recognised")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Logout ends the login that refreshToken belongs to.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string, meta models.ClientMeta) error {
	session, err := s.lookupSession(ctx, refreshToken)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if _, err := s.sessions.RevokeFamily(ctx, session.FamilyID, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	s.audit(ctx, userID, models.AuditActionLogout, meta, nil)
	return nil
}

// LogoutAll revokes every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string, meta models.ClientMeta) (int64, error) {
	n, err := s.sessions.RevokeUser(ctx, userID, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}
	s.audit(ctx, userID, models.AuditActionLogout, meta, map[string]string{"scope": "all"})
	return n, nil
}

// Sessions lists the user's signed-in devices.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	sessions, err := s.sessions.ListActive(ctx, userID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	info := userInfo(user)
	return &info, nil
}

// ChangePassword verifies the old password, stores the new one and signs
// the user out of every session.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := s.now()
	if err := s.users.UpdatePassword(ctx, userID, string(newHash), now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	if _, err := s.sessions.RevokeUser(ctx, userID, now); err != nil {
		s.logger.Warn("failed to revoke sessions after password change", zap.Error(err))
	}
	s.audit(ctx, userID, models.AuditActionPasswordChange, models.ClientMeta{}, nil)
	return nil
}

func (s *AuthService) audit(ctx context.Context, userID, action string, meta models.ClientMeta, details map[string]string) {
	var payload []byte
	if len(details) > 0 {
		payload, _ = json.Marshal(details)
	}
	uid := userID
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &uid,
		Action:     action,
		Resource:   "auth",
		ResourceID: &uid,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(user *models.User) models.UserInfo {
	info := models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
	if user.RollNumber != nil {
		info.RollNumber = *user.RollNumber
	}
	return info
}
