package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classsync/classsync-api/internal/models"
)

// AllowedStudentRepository persists the registration allow list.
type AllowedStudentRepository struct {
	db *sqlx.DB
}

// NewAllowedStudentRepository constructs the repository.
func NewAllowedStudentRepository(db *sqlx.DB) *AllowedStudentRepository {
	return &AllowedStudentRepository{db: db}
}

// List returns every entry ordered by roll number.
func (r *AllowedStudentRepository) List(ctx context.Context) ([]models.AllowedStudent, error) {
	const query = `SELECT id, roll_number, full_name, claimed_by, created_at FROM allowed_students ORDER BY roll_number ASC`
	var entries []models.AllowedStudent
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list allowed students: %w", err)
	}
	return entries, nil
}

// FindByRollNumber fetches an entry.
func (r *AllowedStudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.AllowedStudent, error) {
	const query = `SELECT id, roll_number, full_name, claimed_by, created_at FROM allowed_students WHERE roll_number = $1`
	var entry models.AllowedStudent
	if err := r.db.GetContext(ctx, &entry, query, rollNumber); err != nil {
		return nil, err
	}
	return &entry, nil
}

// BulkUpsert inserts entries, refreshing the name of existing roll numbers. Claims are preserved.
func (r *AllowedStudentRepository) BulkUpsert(ctx context.Context, entries []models.AllowedStudent) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allowed students tx: %w", err)
	}
	const query = `INSERT INTO allowed_students (id, roll_number, full_name, created_at)
VALUES (:id, :roll_number, :full_name, :created_at)
ON CONFLICT (roll_number) DO UPDATE SET full_name = EXCLUDED.full_name`
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, entries[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert allowed student: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allowed students tx: %w", err)
	}
	return nil
}

// Delete removes an entry. It returns sql.ErrNoRows when nothing matched.
func (r *AllowedStudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM allowed_students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete allowed student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
