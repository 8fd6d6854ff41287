package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classsync/classsync-api/internal/models"
)

// HolidayRepository persists calendar holidays and events.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a holiday repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// List returns holidays ordered by date, optionally scoped to a year or a month of a year.
func (r *HolidayRepository) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Year > 0 {
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM date) = $%d", len(args)+1))
		args = append(args, filter.Year)
		if filter.Month >= 1 && filter.Month <= 12 {
			where = append(where, fmt.Sprintf("EXTRACT(MONTH FROM date) = $%d", len(args)+1))
			args = append(args, filter.Month)
		}
	}
	query := fmt.Sprintf("SELECT id, name, date, type, created_at FROM holidays WHERE %s ORDER BY date ASC, name ASC", strings.Join(where, " AND "))
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// Create inserts a holiday.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO holidays (id, name, date, type, created_at) VALUES (:id, :name, :date, :type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// Delete removes a holiday. It returns sql.ErrNoRows when nothing matched.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
