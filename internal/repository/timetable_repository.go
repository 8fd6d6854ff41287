package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classsync/classsync-api/internal/models"
)

// TimetableRepository persists the weekly timetable, one row per weekday.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// List returns every configured weekday with decoded slots.
func (r *TimetableRepository) List(ctx context.Context) ([]models.WeeklySlot, error) {
	const query = `SELECT id, day, slots, updated_at FROM weekly_slots`
	var days []models.WeeklySlot
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list weekly slots: %w", err)
	}
	for i := range days {
		if err := decodeSlots(&days[i]); err != nil {
			return nil, err
		}
	}
	return days, nil
}

// Upsert replaces the slots for a weekday.
func (r *TimetableRepository) Upsert(ctx context.Context, day *models.WeeklySlot) error {
	if day.ID == "" {
		day.ID = uuid.NewString()
	}
	day.UpdatedAt = time.Now().UTC()
	slots := day.Slots
	if slots == nil {
		slots = []models.ClassSlot{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode weekly slots: %w", err)
	}
	day.RawSlots = raw
	const query = `INSERT INTO weekly_slots (id, day, slots, updated_at)
VALUES (:id, :day, :slots, :updated_at)
ON CONFLICT (day)
DO UPDATE SET slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("upsert weekly slots: %w", err)
	}
	return nil
}

// Delete clears a weekday. It returns sql.ErrNoRows when the day had no entry.
func (r *TimetableRepository) Delete(ctx context.Context, day string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM weekly_slots WHERE day = $1", day)
	if err != nil {
		return fmt.Errorf("delete weekly slots: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func decodeSlots(day *models.WeeklySlot) error {
	day.Slots = []models.ClassSlot{}
	if len(day.RawSlots) == 0 {
		return nil
	}
	if err := day.RawSlots.Unmarshal(&day.Slots); err != nil {
		return fmt.Errorf("decode weekly slots for %s: %w", day.Day, err)
	}
	return nil
}
