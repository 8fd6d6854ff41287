package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classsync/classsync-api/internal/models"
)

// ErrSessionRotated means another request exchanged the session first.
var ErrSessionRotated = errors.New("refresh session already rotated")

const sessionColumns = "id, user_id, family_id, token_hash, expires_at, created_at, revoked_at, replaced_by, ip_address, user_agent"

const insertSessionQuery = `INSERT INTO refresh_sessions (id, user_id, family_id, token_hash, expires_at, created_at, ip_address, user_agent)
VALUES (:id, :user_id, :family_id, :token_hash, :expires_at, :created_at, :ip_address, :user_agent)`

// SessionRepository stores hashed refresh sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func prepareSession(s *models.RefreshSession) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.FamilyID == "" {
		s.FamilyID = s.ID
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *models.RefreshSession) error {
	prepareSession(s)
	if _, err := r.db.NamedExecContext(ctx, insertSessionQuery, s); err != nil {
		return fmt.Errorf("create refresh session: %w", err)
	}
	return nil
}

// FindByHash looks a session up by token hash, revoked or not.
func (r *SessionRepository) FindByHash(ctx context.Context, hash string) (*models.RefreshSession, error) {
	query := "SELECT " + sessionColumns + " FROM refresh_sessions WHERE token_hash = $1"
	var s models.RefreshSession
	if err := r.db.GetContext(ctx, &s, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh session: %w", err)
	}
	return &s, nil
}

// Rotate revokes the current session and inserts next in one transaction.
// It returns ErrSessionRotated when current was already revoked.
func (r *SessionRepository) Rotate(ctx context.Context, currentID string, next *models.RefreshSession) error {
	prepareSession(next)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, insertSessionQuery, next); err != nil {
		return fmt.Errorf("insert rotated session: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked_at = $2, replaced_by = $3 WHERE id = $1 AND revoked_at IS NULL`,
		currentID, next.CreatedAt, next.ID)
	if err != nil {
		return fmt.Errorf("revoke rotated session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("revoke rotated session: %w", err)
	} else if n == 0 {
		return ErrSessionRotated
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate tx: %w", err)
	}
	return nil
}

// RevokeFamily revokes every live session descending from the same login.
func (r *SessionRepository) RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked_at = $2 WHERE family_id = $1 AND revoked_at IS NULL`, familyID, at)
	if err != nil {
		return 0, fmt.Errorf("revoke session family: %w", err)
	}
	return res.RowsAffected()
}

// RevokeUser revokes all live sessions of a user.
func (r *SessionRepository) RevokeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return res.RowsAffected()
}

// ListActive returns the user's live sessions, newest first.
func (r *SessionRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]models.RefreshSession, error) {
	query := "SELECT " + sessionColumns + ` FROM refresh_sessions
WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2 ORDER BY created_at DESC`
	var sessions []models.RefreshSession
	if err := r.db.SelectContext(ctx, &sessions, query, userID, now); err != nil {
		return nil, fmt.Errorf("list refresh sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpired removes sessions that expired or were revoked before cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_sessions WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
