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

// MonthlyStatRepository persists monthly summaries keyed by month label.
type MonthlyStatRepository struct {
	db *sqlx.DB
}

// NewMonthlyStatRepository constructs the repository.
func NewMonthlyStatRepository(db *sqlx.DB) *MonthlyStatRepository {
	return &MonthlyStatRepository{db: db}
}

// List returns stored months, newest first.
func (r *MonthlyStatRepository) List(ctx context.Context) ([]models.MonthlyStat, error) {
	const query = `SELECT id, month, total_working_days, total_classes_conducted, notes, created_at, updated_at
FROM monthly_stats ORDER BY created_at DESC`
	var stats []models.MonthlyStat
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("list monthly stats: %w", err)
	}
	return stats, nil
}

// Upsert inserts the month or overwrites the stored figures for the same label.
func (r *MonthlyStatRepository) Upsert(ctx context.Context, stat *models.MonthlyStat) (*models.MonthlyStat, error) {
	now := time.Now().UTC()
	if stat.ID == "" {
		stat.ID = uuid.NewString()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = now
	}
	stat.UpdatedAt = now
	const query = `INSERT INTO monthly_stats (id, month, total_working_days, total_classes_conducted, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (month)
DO UPDATE SET total_working_days = EXCLUDED.total_working_days, total_classes_conducted = EXCLUDED.total_classes_conducted,
              notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id, month, total_working_days, total_classes_conducted, notes, created_at, updated_at`
	var stored models.MonthlyStat
	if err := r.db.GetContext(ctx, &stored, query, stat.ID, stat.Month, stat.TotalWorkingDays, stat.TotalClassesConducted, stat.Notes, stat.CreatedAt, stat.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert monthly stat: %w", err)
	}
	return &stored, nil
}

// Delete removes a stored month. It returns sql.ErrNoRows when nothing matched.
func (r *MonthlyStatRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM monthly_stats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete monthly stat: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
